package router

import (
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/kv"
)

// Route is a successful resolution result: the endpoint to be invoked and path variables
// extracted from the path.
type Route struct {
	Endpoint Endpoint
	Vars     *kv.Storage
}

// Router resolves requests into endpoints. It's shared between all the connections, so it
// must be safe for concurrent reads.
type Router interface {
	// Resolve returns false if there's no mapping for the pair.
	Resolve(method, path string) (Route, bool)
}

// Endpoint is the business logic behind a route. Returning an error (or panicking) results in
// an error response: status.HTTPError preserves its code, message and headers, any other
// error becomes 500 Internal Server Error.
type Endpoint interface {
	Handle(request *http.Request) (*http.Response, error)
}

// AsyncEndpoint is an endpoint, which doesn't produce the response immediately. The
// cooperative processor suspends until done is called, which must happen exactly once.
// The blocking processor just uses Handle.
type AsyncEndpoint interface {
	Endpoint
	HandleAsync(request *http.Request, done func(*http.Response, error))
}

// Interceptor sees every routed request before its endpoint does. Returning a non-nil response
// (or an error) aborts the chain, so neither following interceptors nor the endpoint are called.
type Interceptor interface {
	Intercept(request *http.Request) (*http.Response, error)
}

type Handler func(request *http.Request) (*http.Response, error)

func (h Handler) Handle(request *http.Request) (*http.Response, error) {
	return h(request)
}

// AsyncHandler adapts a callback-style function to AsyncEndpoint.
type AsyncHandler func(request *http.Request, done func(*http.Response, error))

func (a AsyncHandler) HandleAsync(request *http.Request, done func(*http.Response, error)) {
	a(request, done)
}

// Handle blocks until the callback fires.
func (a AsyncHandler) Handle(request *http.Request) (*http.Response, error) {
	type result struct {
		resp *http.Response
		err  error
	}

	ch := make(chan result, 1)
	a(request, func(resp *http.Response, err error) {
		ch <- result{resp, err}
	})
	res := <-ch

	return res.resp, res.err
}

type InterceptorFunc func(request *http.Request) (*http.Response, error)

func (i InterceptorFunc) Intercept(request *http.Request) (*http.Response, error) {
	return i(request)
}
