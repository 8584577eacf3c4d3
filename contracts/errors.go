package contracts

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable reason carried by every engine
// failure, so the calling layer can map errors to response codes without
// parsing free text.
type ErrorCode string

const (
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrValidation    ErrorCode = "VALIDATION"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// ContractError renders as "CODE: message". The code survives the
// chaincode-to-client boundary as the message prefix.
type ContractError struct {
	Code    ErrorCode
	Message string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func notFoundf(format string, args ...interface{}) error {
	return &ContractError{Code: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func unauthorizedf(format string, args ...interface{}) error {
	return &ContractError{Code: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...interface{}) error {
	return &ContractError{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func alreadyExistsf(format string, args ...interface{}) error {
	return &ContractError{Code: ErrAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err carries the given reason code.
func HasCode(err error, code ErrorCode) bool {
	var ce *ContractError
	return errors.As(err, &ce) && ce.Code == code
}
