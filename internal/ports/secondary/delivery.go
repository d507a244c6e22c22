package secondary

import (
	"context"
	"fmt"
)

// DeliveryClient sends status payloads to the backend.
type DeliveryClient interface {
	// SendStatus returns nil on any 2xx response and a *DeliveryError otherwise.
	SendStatus(ctx context.Context, payload *StatusPayload) error
}

// StatusPayload is the request body of a status-log delivery.
type StatusPayload struct {
	DeviceID     string `json:"imei"`
	NetworkID    string `json:"ssid"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	Timestamp    string `json:"timestamp"`
	SubjectPhone string `json:"phone"`
}

// DeliveryErrorKind classifies a failed delivery.
type DeliveryErrorKind string

const (
	DeliveryHTTP    DeliveryErrorKind = "http"
	DeliveryNetwork DeliveryErrorKind = "network"
)

// DeliveryError is returned by DeliveryClient implementations.
type DeliveryError struct {
	Kind       DeliveryErrorKind
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Kind == DeliveryHTTP {
		return fmt.Sprintf("delivery failed: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
