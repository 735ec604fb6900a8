package proto

import "fmt"

type ErrorReason string

const ErrReasonProtocolViolation ErrorReason = "ERR_PROTOCOL_VIOLATION"
const ErrReasonInvalidSession ErrorReason = "ERR_INVALID_SESSION"
const ErrReasonTechnicalException ErrorReason = "ERR_TECHNICAL_EXCEPTION"
const ErrReasonNoSuchEndpoint ErrorReason = "ERR_NO_SUCH_ENDPOINT"
const ErrReasonSessionExists ErrorReason = "ERR_SESSION_EXISTS"

func (e ErrorReason) String() string {
	return string(e)
}

type RegistrationError struct {
	Reason  ErrorReason
	Message string
}

func NewRegistrationError(reason ErrorReason, message string) error {
	return &RegistrationError{
		Reason:  reason,
		Message: message,
	}
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed: reason: %s", e.Reason)
}

func IsRegistrationError(e error) bool {
	_, ok := e.(*RegistrationError)
	return ok
}

type TechnicalExceptionError struct {
	Reason  ErrorReason
	Message string
}

func NewTechnicalExceptionError(message string) error {
	return &TechnicalExceptionError{
		Reason:  ErrReasonTechnicalException,
		Message: message,
	}
}

func (e *TechnicalExceptionError) Error() string {
	return fmt.Sprintf("technical exception: reason: %s", e.Reason)
}

func IsTechnicalExceptionError(e error) bool {
	_, ok := e.(*TechnicalExceptionError)
	return ok
}
