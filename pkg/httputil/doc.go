// Package httputil fetches frame bytes over HTTP.
//
// [Client] issues anonymous GET requests (no cookies, no credentials) with a
// timeout, maps status codes to errors, retries transient failures with
// [Retry] and stores successful bodies in a [cache.Cache].
//
// Status mapping:
//
//   - 200: success
//   - 404: [ErrNotFound], never retried
//   - 5xx: [ErrNetwork] wrapped in [RetryableError]
//   - anything else: [ErrNetwork]
//
// Transport failures (DNS, connection reset, timeout) are retryable.
package httputil
