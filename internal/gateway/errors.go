package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrOffline indicates the backend could not be reached: a transport
	// failure or a request that outlived the client timeout.
	ErrOffline = errors.New("backend unreachable")

	// ErrNotFound matches a 404 from the backend.
	ErrNotFound = errors.New("plan not found")

	// ErrInvalidRequest matches any other 4xx from the backend.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrServer matches a 5xx from the backend.
	ErrServer = errors.New("server error")
)

// StatusError is returned when the backend answered with an error status.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
}

// Is lets errors.Is classify a StatusError by its status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidRequest:
		return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusNotFound
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// IsOffline reports whether err means the backend was unreachable.
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}
