package booking

import "errors"

// Error taxonomy. Public operations wrap these sentinels with detail via
// fmt.Errorf("%w: ...") so callers can branch with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrPolicyViolation = errors.New("policy violation")
	ErrSystemBusy      = errors.New("system busy, retry")
	ErrPersistence     = errors.New("persistence failure")
)
