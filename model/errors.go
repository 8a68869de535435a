package model

import "github.com/pkg/errors"

// ValidationError reports an entity or input that breaks a data invariant.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
