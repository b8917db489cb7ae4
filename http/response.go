package http

import (
	"io"

	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/response"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// why 7? There's no theory behind this number nor researches.
const preallocRespHeaders = 7

type Response struct {
	fields *response.Fields
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK
// and pre-allocated space for response headers.
// NOTE: it's recommended to use Request.Respond() method inside of handlers, if there's no
// clear reason otherwise
func NewResponse() *Response {
	return &Response{
		&response.Fields{
			Code:    status.OK,
			Headers: kv.NewPrealloc(preallocRespHeaders),
		},
	}
}

// Code sets a Response code and a corresponding status.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom status text, which is otherwise deduced from the code.
func (r *Response) Status(status status.Status) *Response {
	r.fields.Status = status
	return r
}

// Header adds the values to a key. Existing values stay intact.
func (r *Response) Header(key string, values ...string) *Response {
	for _, value := range values {
		r.fields.Headers.Add(key, value)
	}

	return r
}

// SetHeader replaces all the values of the key.
func (r *Response) SetHeader(key, value string) *Response {
	r.fields.Headers.Set(key, value)
	return r
}

// Headers merges the storage into the response headers.
func (r *Response) Headers(headers *kv.Storage) *Response {
	for key, value := range headers.Iter() {
		r.fields.Headers.Add(key, value)
	}

	return r
}

// ContentType sets the Content-Type header value.
func (r *Response) ContentType(value string) *Response {
	return r.SetHeader("Content-Type", value)
}

// String sets the response's body to the passed string
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) Bytes(body []byte) *Response {
	r.fields.Body = body
	r.fields.Stream = nil
	return r
}

// Write implements io.Writer interface. It always returns n=len(b) and err=nil
func (r *Response) Write(b []byte) (n int, err error) {
	r.fields.Body = append(r.fields.Body, b...)
	return len(b), nil
}

// Stream sets the body to a reader. Size of -1 means it's unknown, so the body will be
// transferred chunked (or until the connection closes, for HTTP/1.0 peers). If the reader
// implements io.Closer, it's closed after being sent.
func (r *Response) Stream(reader io.Reader, size int64) *Response {
	r.fields.Stream = reader
	r.fields.StreamSize = size
	r.fields.Body = nil
	return r
}

// TryJSON marshals the model into the body and sets the content type respectively.
func (r *Response) TryJSON(model any) (*Response, error) {
	data, err := json.Marshal(model)
	if err != nil {
		return r, err
	}

	return r.ContentType("application/json").Bytes(data), nil
}

// JSON does the same as TryJSON, except that the marshalling error results in the
// 500 Internal Server Error response.
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Code(status.InternalServerError).String(err.Error())
	}

	return resp
}

// SwitchProtocol makes the response a 101 Switching Protocols one. After it's sent, the
// connection is handed off to the handler.
func (r *Response) SwitchProtocol(protocol string, handler UpgradeHandler, params *kv.Storage) *Response {
	return r.Code(status.SwitchingProtocols).
		SetHeader("Connection", "upgrade").
		SetHeader("Upgrade", protocol).
		Upgrade(handler, params)
}

// Upgrade sets the handler taking over the connection in case the response results in
// the connection upgrade.
func (r *Response) Upgrade(handler UpgradeHandler, params *kv.Storage) *Response {
	r.fields.Upgrade = handler
	r.fields.UpgradeParams = params
	return r
}

// Expose gives access to the response internals.
func (r *Response) Expose() *response.Fields {
	return r.fields
}
