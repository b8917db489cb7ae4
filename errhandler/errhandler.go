// Package errhandler converts failures into well-formed responses.
package errhandler

import (
	"strings"

	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/kv"
	json "github.com/json-iterator/go"
)

// ErrorHandler must always succeed. It's shared between all the connections, so it must be
// safe for concurrent use.
type ErrorHandler interface {
	HandleError(code status.Code, message string, headers *kv.Storage) *http.Response
}

type Func func(code status.Code, message string, headers *kv.Storage) *http.Response

func (f Func) HandleError(code status.Code, message string, headers *kv.Storage) *http.Response {
	return f(code, message, headers)
}

type plain struct {
	server string
}

// Default renders errors as plain text:
//
//	server=<server>
//	code=<code>
//	description=<status text>
//	message=<message>
func Default(server string) ErrorHandler {
	return plain{server: server}
}

func (p plain) HandleError(code status.Code, message string, headers *kv.Storage) *http.Response {
	var b strings.Builder
	b.WriteString("server=")
	b.WriteString(p.server)
	b.WriteString("\ncode=")
	b.WriteString(status.StringCode(code))
	b.WriteString("\ndescription=")
	b.WriteString(string(status.Text(code)))
	b.WriteString("\nmessage=")
	b.WriteString(message)
	b.WriteByte('\n')

	return http.NewResponse().
		Code(code).
		Headers(headers).
		ContentType("text/plain; charset=utf-8").
		String(b.String())
}

type jsonHandler struct{}

type jsonError struct {
	Code        status.Code   `json:"code"`
	Description status.Status `json:"description"`
	Message     string        `json:"message"`
}

// JSON renders errors as {"code": ..., "description": ..., "message": ...}.
func JSON() ErrorHandler {
	return jsonHandler{}
}

func (jsonHandler) HandleError(code status.Code, message string, headers *kv.Storage) *http.Response {
	body, err := json.Marshal(jsonError{
		Code:        code,
		Description: status.Text(code),
		Message:     message,
	})
	if err != nil {
		// marshalling three plain fields can't really fail, but the handler must never fail
		body = []byte(`{"code":500}`)
	}

	return http.NewResponse().
		Code(code).
		Headers(headers).
		ContentType("application/json").
		Bytes(body)
}
