package failure

import (
	"errors"
	"net/http"
)

// Class partitions client-observed errors by how the caller should
// react: retry, re-authenticate, fix input, or navigate away.
type Class string

const (
	ClassNetwork     Class = "network"
	ClassAuth        Class = "auth"
	ClassValidation  Class = "validation"
	ClassServer      Class = "server"
	ClassNotFound    Class = "not_found"
	ClassGeolocation Class = "geolocation"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
type Failure struct {
	Class   Class  `json:"class"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var ReauthenticationRequired = &Failure{Class: ClassAuth, Code: http.StatusUnauthorized, Message: "reauthentication required"}
var ChannelUnavailable = &Failure{Class: ClassNetwork, Code: http.StatusServiceUnavailable, Message: "realtime channel unavailable"}

// Error returns the failure message.
func (e *Failure) Error() string {
	return e.Message
}

// Network returns a new Failure for requests that never completed.
func Network(err error) error {
	if err != nil {
		return &Failure{
			Class:   ClassNetwork,
			Code:    http.StatusServiceUnavailable,
			Message: err.Error(),
		}
	}

	return nil
}

// Unauthorized returns a new Failure for terminal authentication errors.
func Unauthorized(msg string) error {
	return &Failure{
		Class:   ClassAuth,
		Code:    http.StatusUnauthorized,
		Message: msg,
	}
}

// Validation returns a new Failure for client-side validation errors
// that must never reach the network.
func Validation(msg string) error {
	return &Failure{
		Class:   ClassValidation,
		Code:    http.StatusBadRequest,
		Message: msg,
	}
}

// Server returns a new Failure carrying a non-2xx response verbatim.
func Server(code int, msg string) error {
	return &Failure{
		Class:   ClassServer,
		Code:    code,
		Message: msg,
	}
}

// NotFound returns a new Failure for an entity the backend does not know.
func NotFound(entityName string) error {
	return &Failure{
		Class:   ClassNotFound,
		Code:    http.StatusNotFound,
		Message: entityName + " not found",
	}
}

// Geolocation returns a new Failure for device location errors.
func Geolocation(err error) error {
	if err != nil {
		return &Failure{
			Class:   ClassGeolocation,
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	return nil
}

// GetCode returns the error code of an error interface.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// GetClass returns the failure class, defaulting to server.
func GetClass(err error) Class {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Class
	}

	return ClassServer
}

// Is reports whether err belongs to the given class.
func Is(err error, class Class) bool {
	return err != nil && GetClass(err) == class
}
