package processor

import (
	"errors"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/protocol/http1"
	"github.com/indigo-web/exchange/internal/strutil"
	"github.com/indigo-web/exchange/router"
	"github.com/indigo-web/exchange/transport"
	"github.com/rs/zerolog"
)

const (
	msgNoMapping    = "Current url has no mapping"
	msgUnknownError = "Unknown error"
)

// conn is the state of a single connection and the exchange currently going on it. All the
// semantics live here, drivers differ only in how they wait for I/O.
type conn struct {
	p          *Processor
	client     transport.Client
	log        zerolog.Logger
	headers    *http1.HeadersReader
	serializer *http1.Serializer
	line       http.StartLine
	request    *http.Request
	response   *http.Response
	connState  ConnectionState
	forceClose bool
}

func (p *Processor) newConn(client transport.Client) conn {
	return conn{
		p:      p,
		client: client,
		log: p.logger.With().
			Str("conn", uniuri.NewLen(8)).
			Stringer("remote", client.Remote()).
			Logger(),
		headers:    http1.NewHeadersReader(p.cfg),
		serializer: http1.NewSerializer(p.cfg, client),
	}
}

// reset prepares the connection for the next exchange.
func (c *conn) reset() {
	c.headers.Reset()
	c.line = http.StartLine{}
	c.request = nil
	c.response = nil
	c.connState = Close
	c.forceClose = false
}

// onHeaders resolves the outcome of the header block read. The returned endpoint is nil if
// the response is already formed. If ok is false, the connection must be dropped silently.
func (c *conn) onHeaders(result http1.Result, err error) (endpoint router.Endpoint, ok bool) {
	if err != nil {
		var herr status.HTTPError
		if !errors.As(err, &herr) {
			c.dropped(result, err)
			return nil, false
		}

		c.forceClose = true
		c.response = c.handleError(herr.Code, herr.Message, herr.Headers)

		return nil, true
	}

	c.line = result.Line

	route, found, resp := c.resolve()
	switch {
	case resp != nil:
		c.forceClose = true
		c.response = resp
		return nil, true
	case !found:
		c.forceClose = true
		c.response = c.handleError(status.NotFound, msgNoMapping, nil)
		return nil, true
	}

	c.request = http.NewRequest(c.line, result.Headers, route.Vars, c.client, c.p.decoder)
	c.response = c.intercept()
	if c.response != nil {
		return nil, true
	}

	return route.Endpoint, true
}

func (c *conn) dropped(result http1.Result, err error) {
	switch {
	case result.IOStatus == 0:
		c.log.Debug().Msg("connection closed by peer")
	case transport.IsTimeout(err):
		c.log.Debug().Msg("read timeout exceeded, closing the connection")
	default:
		c.log.Debug().Err(err).Int("status", result.IOStatus).Msg("failed to read request headers")
	}
}

// resolve queries the router. A panicking router results in a response rather than a
// crashed connection.
func (c *conn) resolve() (route router.Route, found bool, resp *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = c.fromPanic(r)
		}
	}()

	route, found = c.p.router.Resolve(c.line.Method, c.line.Path)

	return route, found, nil
}

// intercept runs the interceptors in order. The first one to respond (or fail) aborts the
// chain, so the nil response means the request must reach its endpoint.
func (c *conn) intercept() *http.Response {
	return c.invoke(func() (*http.Response, error) {
		for _, interceptor := range c.p.interceptors {
			resp, err := interceptor.Intercept(c.request)
			if err != nil || resp != nil {
				return resp, err
			}
		}

		return nil, nil
	})
}

// call invokes the endpoint synchronously.
func (c *conn) call(endpoint router.Endpoint) *http.Response {
	resp := c.invoke(func() (*http.Response, error) {
		return endpoint.Handle(c.request)
	})

	return c.orDefault(resp)
}

// result converts the outcome reported by an asynchronous endpoint.
func (c *conn) result(resp *http.Response, err error) *http.Response {
	if err != nil {
		return c.fromError(err)
	}

	return c.orDefault(resp)
}

func (c *conn) orDefault(resp *http.Response) *http.Response {
	if resp == nil {
		return http.Respond(c.request)
	}

	return resp
}

func (c *conn) invoke(fn func() (*http.Response, error)) (resp *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = c.fromPanic(r)
		}
	}()

	resp, err := fn()
	if err != nil {
		return c.fromError(err)
	}

	return resp
}

func (c *conn) fromError(err error) *http.Response {
	var herr status.HTTPError
	if errors.As(err, &herr) {
		return c.handleError(herr.Code, herr.Message, herr.Headers)
	}

	return c.handleError(status.InternalServerError, err.Error(), nil)
}

func (c *conn) fromPanic(r any) *http.Response {
	if err, ok := r.(error); ok {
		c.log.Debug().Err(err).Msg("recovered from panic")
		return c.fromError(err)
	}

	c.log.Error().Interface("panic", r).Msg("unrecognized failure while processing the request")

	return c.handleError(status.InternalServerError, msgUnknownError, nil)
}

func (c *conn) handleError(code status.Code, message string, headers http.Headers) *http.Response {
	if resp := c.p.errHandler.HandleError(code, message, headers); resp != nil {
		return resp
	}

	return http.NewResponse().Code(code).Headers(headers).String(message)
}

// formResponse applies default headers and decides on the connection state, reflecting it in
// the Connection header.
func (c *conn) formResponse() {
	headers := c.response.Expose().Headers
	for _, header := range c.p.defaultHeaders {
		headers.SetIfAbsent(header.Key, header.Value)
	}

	if c.forceClose {
		c.connState = Close
	} else {
		c.connState = ConsiderConnectionState(c.request, c.response)
	}

	switch c.connState {
	case KeepAlive:
		headers.SetIfAbsent("Connection", "keep-alive")
	case Close:
		if !strutil.HasToken(headers.Value("Connection"), "close") {
			headers.Set("Connection", "close")
		}
	}
}

func (c *conn) send() error {
	return c.serializer.Write(c.line.Method, c.line.Protocol, c.response)
}

// sendFailed reports the failure of sending the response. Peers gone away are nothing
// unusual and aren't worth logging.
func (c *conn) sendFailed(err error) {
	if transport.IsPeerGone(err) {
		return
	}

	c.log.Error().Err(err).Msg("failed to send the response, dropping the connection")
}

// discard reads out the unconsumed request body, so the next read starts at the next
// request boundary.
func (c *conn) discard() error {
	if c.request == nil {
		return nil
	}

	return c.request.Body().Discard()
}

func (c *conn) completed() {
	c.log.Debug().
		Str("method", c.line.Method).
		Str("path", c.line.Path).
		Uint16("code", uint16(c.response.Expose().Code)).
		Stringer("state", c.connState).
		Msg("exchange completed")
}

// handoff passes the connection to the upgrade handler. The client is no longer owned by
// the driver afterwards. It returns nil if there's no handler, in which case the connection
// is just closed.
func (c *conn) handoff() func() {
	fields := c.response.Expose()
	if fields.Upgrade == nil {
		c.log.Warn().Msg("connection upgrade requested, but there's no handler to take it over")
		return nil
	}

	client, handler, params := c.client, fields.Upgrade, fields.UpgradeParams
	c.client = nil
	c.log.Debug().Msg("connection handed off")

	return func() {
		handler.HandleConnection(client, params)
	}
}

// close releases the client, unless it was handed off.
func (c *conn) close() {
	if c.client == nil {
		return
	}

	if err := c.client.Close(); err != nil {
		c.log.Debug().Err(err).Msg("failed to close the connection")
	}

	c.client = nil
}
