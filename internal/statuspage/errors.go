package statuspage

import "fmt"

// ServiceError is returned when the status page answers with a non-success status
type ServiceError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: status page returned %d: %s", e.Op, e.StatusCode, e.Body)
}
