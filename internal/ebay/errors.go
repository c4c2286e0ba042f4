package ebay

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is a 429 from the upstream. The credential that hit it
// has already been placed in cooldown by the time the error surfaces.
type RateLimitError struct {
	AppID string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ebay: rate limited on credential %s", e.AppID)
}

// AuthError is a 401 during token acquisition. The credential has been
// marked error in the backing store.
type AuthError struct {
	AppID string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ebay: auth failure on credential %s", e.AppID)
}

// TransientError is any other non-2xx upstream response.
type TransientError struct {
	Status int
	Body   string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("ebay: upstream status %d: %s", e.Status, e.Body)
}

// AllCoolingError means every credential is in cooldown.
type AllCoolingError struct {
	ResetIn time.Duration
}

func (e *AllCoolingError) Error() string {
	return fmt.Sprintf("ebay: all credentials cooling; reset in %ds", int(e.ResetIn.Seconds()))
}

// ErrNoUsableCredentials means every credential is disabled.
var ErrNoUsableCredentials = errors.New("ebay: no usable credentials")

// IsRateLimit reports whether err is (or wraps) a rate-limit error.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
