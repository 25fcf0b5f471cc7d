package registry

import "errors"

// Operation outcomes surfaced to callers. Persistence failures are not
// among them: saves are best-effort and reported to the logger only.
var (
	ErrInvalidURL       = errors.New("original url is not a valid absolute url")
	ErrInvalidShortCode = errors.New("short code must be 1-20 alphanumeric characters")
	ErrShortCodeTaken   = errors.New("short code already in use")
	ErrNotFound         = errors.New("short code not found")
)
