package attendance

import "errors"

// Error kinds reported by the attendance core. All of them are recoverable
// and map to a user-visible message at the API boundary.
var (
	ErrDuplicateEntry          = errors.New("an entry already exists for this user and date")
	ErrInvalidTarget           = errors.New("only auto-absent entries can be corrected")
	ErrEmptyReason             = errors.New("reason is required")
	ErrDuplicatePendingRequest = errors.New("a pending request already exists for this entry")
	ErrAlreadyReviewed         = errors.New("request has already been reviewed")
	ErrNotFound                = errors.New("not found")
	ErrUnauthorized            = errors.New("not authorized")

	ErrInvalidDate         = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidReport       = errors.New("invalid attendance report")
	ErrInvalidDecision     = errors.New("decision must be approved or rejected")
	ErrInvalidSettings     = errors.New("invalid attendance settings")
	ErrRetroactiveDisabled = errors.New("retroactive requests are disabled")
	ErrDuplicateEmail      = errors.New("a user with this email already exists")
	ErrInvalidUser         = errors.New("invalid user")
)
