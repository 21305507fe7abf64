package validator

import (
	val "github.com/go-playground/validator/v10"

	"quickassist/shared/failure"
)

var validate = val.New(val.WithRequiredStructEnabled())

// Validate checks a request struct against its validate tags and maps
// the first violation to a local validation failure. Validation
// failures never reach the network.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	return failure.Validation(message(err))
}
