package policy

import (
	"errors"
	"fmt"
)

// ErrUnsupportedContentType rejects a MIME type outside the allow-list.
var ErrUnsupportedContentType = errors.New("content type is not allowed")

// PayloadTooLargeError rejects a declared size above the role's ceiling.
type PayloadTooLargeError struct {
	Ceiling   int64
	Requested int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds ceiling of %d bytes", e.Requested, e.Ceiling)
}

// QuotaExceededError rejects an upload once the user's daily count is at or
// above the limit resolved for their role.
type QuotaExceededError struct {
	Limit        int
	CurrentCount int
	Role         string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily upload limit of %d reached for role %q (current count %d)", e.Limit, e.Role, e.CurrentCount)
}
