package mocks

import (
	"quickassist/infras/otel"
)

// NewOtel returns the no-op tracer used by service and repository tests.
func NewOtel() otel.Otel {
	return otel.NewNoop()
}
