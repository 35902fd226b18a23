package service

import "errors"

var (
	ErrInvalidDecision        = errors.New("decision must be approved or rejected")
	ErrInvalidDocumentType    = errors.New("document type does not belong to category")
	ErrAlreadyApproved        = errors.New("document already approved")
	ErrVisaOrderViolation     = errors.New("visa step out of order")
	ErrConcurrentModification = errors.New("record was modified by another request, reload and retry")
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrUnauthenticated        = errors.New("authentication required")
	ErrForbidden              = errors.New("access denied")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrConflict               = errors.New("already exists")
)

// VisaOrderError carries the validator's reason. It matches ErrVisaOrderViolation under errors.Is.
type VisaOrderError struct {
	Reason string
}

func (e *VisaOrderError) Error() string {
	return e.Reason
}

func (e *VisaOrderError) Is(target error) bool {
	return target == ErrVisaOrderViolation
}
