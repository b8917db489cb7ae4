package status

import "github.com/indigo-web/exchange/kv"

// HTTPError is a structured protocol error. Returning (or panicking with) it from an
// interceptor or an endpoint results in a response with exactly this code, message and headers.
type HTTPError struct {
	Message string
	Code    Code
	// Headers are optional and copied into the error response as they are.
	Headers *kv.Storage
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

// WithHeaders returns a copy of the error carrying the headers.
func (h HTTPError) WithHeaders(headers *kv.Storage) HTTPError {
	h.Headers = headers
	return h
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest              = NewError(BadRequest, "bad request")
	ErrBadRequestLine          = NewError(BadRequest, "malformed request line")
	ErrBadHeader               = NewError(BadRequest, "malformed header line")
	ErrBadContentLength        = NewError(BadRequest, "malformed Content-Length header value")
	ErrBadChunk                = NewError(BadRequest, "malformed chunk-encoded data")
	ErrNotFound                = NewError(NotFound, "not found")
	ErrInternalServerError     = NewError(InternalServerError, "internal server error")
	ErrNotImplemented          = NewError(NotImplemented, "not implemented")
	ErrUnsupportedEncoding     = NewError(NotImplemented, "transfer coding is not supported")
	ErrMethodNotAllowed        = NewError(MethodNotAllowed, "method not allowed")
	ErrBodyTooLarge            = NewError(RequestEntityTooLarge, "request body is too large")
	ErrHeaderFieldsTooLarge    = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrHTTPVersionNotSupported = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrUnauthorized            = NewError(Unauthorized, "unauthorized")
	ErrForbidden               = NewError(Forbidden, "forbidden")
	ErrRequestTimeout          = NewError(RequestTimeout, "request timeout")
	ErrTooManyRequests         = NewError(TooManyRequests, "too many requests")
	ErrServiceUnavailable      = NewError(ServiceUnavailable, "service unavailable")
)
