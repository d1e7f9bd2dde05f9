package statuspage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/levigross/grequests"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the Freshstatus public API root
const DefaultBaseURL = "https://public-api.freshstatus.io/api/v1/"

// maxPages bounds pagination in case the service keeps returning a next link
const maxPages = 100

// Gateway is the set of status page calls the reconciler needs
type Gateway interface {
	ListComponents(ctx context.Context) ([]Component, error)
	ListIncidents(ctx context.Context) ([]Incident, error)
	GetIncident(ctx context.Context, id ID) (*Incident, error)
	CreateIncident(ctx context.Context, payload IncidentPayload) (*Incident, error)
	UpdateIncident(ctx context.Context, id ID, payload IncidentPayload) (*Incident, error)
	ResolveIncident(ctx context.Context, id ID, message string) error
}

// ObserveFunc is called after every API request with the operation name,
// its duration and the resulting error, if any
type ObserveFunc func(op string, d time.Duration, err error)

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL   string
	Subdomain string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
	Observe    ObserveFunc
}

// Client talks to the Freshstatus REST API
type Client struct {
	baseURL   string
	subdomain string
	apiKey    string
	timeout   time.Duration
	userAgent string
	http      *http.Client
	observe   ObserveFunc
	logger    zerolog.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient creates a new Freshstatus API client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   base,
		subdomain: cfg.Subdomain,
		apiKey:    cfg.APIKey,
		timeout:   timeout,
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
		observe:   cfg.Observe,
		logger:    logger.With().Str("component", "statuspage").Logger(),
	}
}

// ListComponents returns every service defined on the status page
func (c *Client) ListComponents(ctx context.Context) ([]Component, error) {
	var all []Component
	err := c.list(ctx, "list_components", "services/", func(resp *grequests.Response) (string, error) {
		var p page[Component]
		if err := resp.JSON(&p); err != nil {
			return "", err
		}
		all = append(all, p.Results...)
		return p.Next, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// ListIncidents returns the incidents the service reports as open
func (c *Client) ListIncidents(ctx context.Context) ([]Incident, error) {
	var all []Incident
	err := c.list(ctx, "list_incidents", "incidents/", func(resp *grequests.Response) (string, error) {
		var p page[Incident]
		if err := resp.JSON(&p); err != nil {
			return "", err
		}
		all = append(all, p.Results...)
		return p.Next, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// GetIncident fetches the full incident resource
func (c *Client) GetIncident(ctx context.Context, id ID) (*Incident, error) {
	var inc Incident
	if err := c.do(ctx, "get_incident", http.MethodGet, c.incidentURL(id, ""), nil, &inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

// CreateIncident opens a new incident
func (c *Client) CreateIncident(ctx context.Context, payload IncidentPayload) (*Incident, error) {
	var inc Incident
	if err := c.do(ctx, "create_incident", http.MethodPost, c.baseURL+"incidents/", payload, &inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

// UpdateIncident resubmits the complete incident resource
func (c *Client) UpdateIncident(ctx context.Context, id ID, payload IncidentPayload) (*Incident, error) {
	var inc Incident
	if err := c.do(ctx, "update_incident", http.MethodPatch, c.incidentURL(id, ""), payload, &inc); err != nil {
		return nil, err
	}
	return &inc, nil
}

// ResolveIncident closes an incident with a message
func (c *Client) ResolveIncident(ctx context.Context, id ID, message string) error {
	return c.do(ctx, "resolve_incident", http.MethodPost, c.incidentURL(id, "resolve/"), resolveRequest{Message: message}, nil)
}

func (c *Client) incidentURL(id ID, suffix string) string {
	return c.baseURL + "incidents/" + url.PathEscape(string(id)) + "/" + suffix
}

// list walks a paginated listing, calling decode for each page. A listing
// that is still paginating after maxPages is an error, never a partial result.
func (c *Client) list(ctx context.Context, op, path string, decode func(*grequests.Response) (string, error)) error {
	next := c.baseURL + path
	for i := 0; next != ""; i++ {
		if i == maxPages {
			return fmt.Errorf("%s: more than %d pages", op, maxPages)
		}
		if i > 0 {
			if err := c.checkNext(next); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		resp, err := c.request(ctx, op, http.MethodGet, next, nil)
		if err != nil {
			return err
		}
		next, err = decode(resp)
		resp.Close()
		if err != nil {
			return fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return nil
}

// checkNext refuses pagination links that leave the API host, so the
// credentials are only ever sent to baseURL
func (c *Client) checkNext(next string) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parsing base url: %w", err)
	}
	u, err := url.Parse(next)
	if err != nil {
		return fmt.Errorf("parsing next link: %w", err)
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return fmt.Errorf("next link %q is outside %s://%s", next, base.Scheme, base.Host)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, rawURL string, body, out interface{}) error {
	resp, err := c.request(ctx, op, method, rawURL, body)
	if err != nil {
		return err
	}
	defer resp.Close()
	if out == nil {
		return nil
	}
	if err := resp.JSON(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, op, method, rawURL string, body interface{}) (resp *grequests.Response, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(op, time.Since(start), err)
		}
	}()

	ro := &grequests.RequestOptions{
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		Auth:           []string{c.apiKey, c.subdomain},
		RequestTimeout: c.timeout,
		UserAgent:      c.userAgent,
		HTTPClient:     c.http,
		Context:        ctx,
	}
	if body != nil {
		ro.JSON = body
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", rawURL).
		Msg("Status page request")

	resp, err = grequests.Request(method, rawURL, grequests.FromRequestOptions(ro))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !resp.Ok {
		serr := &ServiceError{Op: op, StatusCode: resp.StatusCode, Body: resp.String()}
		resp.Close()
		c.logger.Error().
			Str("op", op).
			Int("status_code", serr.StatusCode).
			Str("body", serr.Body).
			Msg("Status page returned non-success status")
		return nil, serr
	}
	return resp, nil
}
