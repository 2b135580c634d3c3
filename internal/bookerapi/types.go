// Package bookerapi contains the REST client for the booking backend the
// widget talks to: public slot listing and appointment creation.
package bookerapi

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a non-2xx answer from the slots endpoint.
var ErrUnavailable = errors.New("bookerapi: slots unavailable")

// StatusError carries the status and a trimmed body of a non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: booking API returned %d: %s", e.Op, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

// AppointmentRequest is the creation payload.
type AppointmentRequest struct {
	ProviderID  string `json:"barber_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
}

// AppointmentResponse describes a completed creation round trip. The backend
// may still have rejected the booking; Status and Error say how.
type AppointmentResponse struct {
	Status  int    `json:"-"`
	Body    []byte `json:"-"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Accepted reports whether the backend answered with a 2xx status.
func (r *AppointmentResponse) Accepted() bool {
	return r != nil && r.Status >= 200 && r.Status <= 299
}
