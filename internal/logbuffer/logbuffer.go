package logbuffer

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log line
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	Level          string    `json:"level"`
	Message        string    `json:"message"`
	CorrelationKey string    `json:"correlation_key,omitempty"`
	Raw            string    `json:"raw"`
}

// Buffer is a fixed size ring of recent zerolog lines. It implements io.Writer
// so it can sit next to stdout in a MultiWriter.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// New creates a buffer holding up to size entries
func New(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Write implements io.Writer. zerolog writes exactly one JSON object per call.
func (b *Buffer) Write(p []byte) (int, error) {
	e := parse(p)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.head] = e
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
	return len(p), nil
}

// Recent returns up to n entries, oldest first. An empty level matches all.
func (b *Buffer) Recent(n int, level string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if b.count == len(b.entries) {
		start = b.head
	}
	out := make([]Entry, 0, b.count)
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%len(b.entries)]
		if level != "" && e.Level != level {
			continue
		}
		out = append(out, e)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// Len returns the number of buffered entries
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

func parse(p []byte) Entry {
	raw := strings.TrimRight(string(p), "\n")
	e := Entry{Timestamp: time.Now(), Level: "info", Message: raw, Raw: raw}

	var line struct {
		Level          string `json:"level"`
		Message        string `json:"message"`
		CorrelationKey string `json:"correlation_key"`
	}
	if err := json.Unmarshal(p, &line); err != nil {
		return e
	}
	if line.Level != "" {
		e.Level = line.Level
	}
	if line.Message != "" {
		e.Message = line.Message
	}
	e.CorrelationKey = line.CorrelationKey
	return e
}
