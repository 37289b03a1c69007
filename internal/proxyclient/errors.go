package proxyclient

import (
	"errors"

	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

// NetworkError wraps a transport-level failure reaching the proxy itself
// (not the storefront behind it, which the proxy would instead surface as
// a non-2xx status).
func NetworkError(platform string, err error) error {
	return apperrors.Network(platform, err)
}

// StatusError carries the actual non-2xx status code the proxy relayed back
// from the storefront origin; platform handlers that need to branch on the
// exact code (e.g. BigBasket's 404-means-stale-buildId rule) unwrap it with
// StatusCode instead of parsing apperrors.AppError's rendered message.
type StatusError struct {
	Platform string
	Status   int
	inner    error
}

func (e *StatusError) Error() string { return e.inner.Error() }
func (e *StatusError) Unwrap() error { return e.inner }

// UpstreamStatusError wraps a non-2xx status the proxy relayed back from
// the storefront origin.
func UpstreamStatusError(platform string, status int) error {
	return &StatusError{Platform: platform, Status: status, inner: apperrors.UpstreamStatus(platform, status)}
}

// StatusCode extracts the upstream HTTP status from err if it (or something
// it wraps) is a *StatusError.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}
