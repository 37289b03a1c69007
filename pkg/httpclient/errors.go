package httpclient

import (
	"io"
	"net/http"

	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

// ParseUpstreamError reads and discards the body of a non-2xx HTTP response
// from a scraped platform upstream and returns an UpstreamStatusError
// carrying the platform name and status code. The response body is fully
// consumed and closed so the underlying connection can be reused.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx).
func ParseUpstreamError(resp *http.Response, platform string) error {
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return apperrors.UpstreamStatus(platform, resp.StatusCode)
}

// NetworkError wraps a transport-level failure reaching a platform's
// upstream (DNS, connection refused, TLS handshake, timeout).
func NetworkError(platform string, err error) error {
	return apperrors.Network(platform, err)
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
