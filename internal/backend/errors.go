package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"pmconsole/internal/models"

	"github.com/sony/gobreaker"
)

// TransportError is a failed exchange with the backend: a non-2xx status, a
// network or timeout failure, or a body that is not JSON.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	// Message is the "message" field of a JSON error body, if any.
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: http %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	default:
		return e.Endpoint + ": transport error"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// Unavailable reports whether the circuit breaker refused the call.
func (e *TransportError) Unavailable() bool {
	return errors.Is(e.Err, gobreaker.ErrOpenState) || errors.Is(e.Err, gobreaker.ErrTooManyRequests)
}

// StatusMessages maps backend HTTP statuses to user-facing sentences for one
// operation. Fallback is used when neither the table nor the body has one.
type StatusMessages struct {
	ByStatus map[int]string
	Fallback string
}

// UserMessage turns the error into a plain sentence using the table.
func (e *TransportError) UserMessage(table StatusMessages) string {
	if e.StatusCode != 0 {
		if msg, ok := table.ByStatus[e.StatusCode]; ok {
			return msg
		}
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
		return fallback(table)
	}
	switch {
	case e.Unavailable():
		return models.MsgServiceDegraded
	case e.Timeout():
		return models.MsgTimeout
	case e.Err != nil && errors.Is(e.Err, errMalformedBody):
		return fallback(table)
	default:
		return models.MsgNetworkError
	}
}

// MessageFor maps any error returned by Client.Do to a user sentence.
func MessageFor(err error, table StatusMessages) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.UserMessage(table)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.MsgTimeout
	}
	return fallback(table)
}

func fallback(table StatusMessages) string {
	if table.Fallback != "" {
		return table.Fallback
	}
	return models.MsgGenericFailure
}

var errMalformedBody = errors.New("malformed response body")
