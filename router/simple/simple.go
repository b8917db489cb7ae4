// Package simple implements a minimalistic Router, matching paths segment by segment. A
// segment in curly braces, e.g. {id}, matches any non-empty segment and is exposed as a path
// variable. It's intended for examples and tests; real applications bring their own routers.
package simple

import (
	"strings"

	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/method"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/exchange/router"
)

type route struct {
	method   string
	segments []string
	endpoint router.Endpoint
}

type Router struct {
	routes []route
}

func New() *Router {
	return new(Router)
}

// Route registers the endpoint. Routes are matched in the order of their registration.
func (r *Router) Route(method, pattern string, endpoint router.Endpoint) *Router {
	r.routes = append(r.routes, route{
		method:   method,
		segments: split(pattern),
		endpoint: endpoint,
	})

	return r
}

// Get is a shortcut for GET routes with plain handlers.
func (r *Router) Get(pattern string, handler func(*http.Request) (*http.Response, error)) *Router {
	return r.Route(method.GET, pattern, router.Handler(handler))
}

// Post is a shortcut for POST routes with plain handlers.
func (r *Router) Post(pattern string, handler func(*http.Request) (*http.Response, error)) *Router {
	return r.Route(method.POST, pattern, router.Handler(handler))
}

func (r *Router) Resolve(method, path string) (router.Route, bool) {
	if query := strings.IndexByte(path, '?'); query != -1 {
		path = path[:query]
	}

	segments := split(path)

	for _, rt := range r.routes {
		if rt.method != method || len(rt.segments) != len(segments) {
			continue
		}

		if vars, ok := match(rt.segments, segments); ok {
			return router.Route{
				Endpoint: rt.endpoint,
				Vars:     vars,
			}, true
		}
	}

	return router.Route{}, false
}

func match(pattern, segments []string) (*kv.Storage, bool) {
	vars := kv.New()

	for i, seg := range pattern {
		if isVar(seg) {
			if len(segments[i]) == 0 {
				return nil, false
			}

			vars.Add(seg[1:len(seg)-1], segments[i])
			continue
		}

		if seg != segments[i] {
			return nil, false
		}
	}

	return vars, true
}

func isVar(segment string) bool {
	return len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if len(path) == 0 {
		return nil
	}

	return strings.Split(path, "/")
}
