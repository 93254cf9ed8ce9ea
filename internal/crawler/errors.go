package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors shared across packages.
var (
	ErrJobNotFound               = errors.New("job not found")
	ErrJobExists                 = errors.New("job already exists")
	ErrInvalidURL                = errors.New("invalid url")
	ErrJobNotCompleted           = errors.New("job not completed")
	ErrTextGenerationUnavailable = errors.New("text generation unavailable")
	ErrUnsupportedContent        = errors.New("unsupported content type")
	ErrJobFinished               = errors.New("job already finished")
	ErrQueueFull                 = errors.New("queue full")
	ErrQueueClosed               = errors.New("queue closed")
)

// FetchError describes why a page could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Temporary reports whether retrying the fetch could plausibly succeed.
func (e *FetchError) Temporary() bool {
	if e.Timeout() {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
