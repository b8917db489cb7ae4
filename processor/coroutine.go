package processor

import (
	"sync"

	"github.com/indigo-web/exchange/async"
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/protocol/http1"
	"github.com/indigo-web/exchange/router"
	"github.com/indigo-web/exchange/transport"
)

var (
	_ async.Coroutine = new(Coroutine)
	_ async.Finalizer = new(Coroutine)
)

type step uint8

const (
	stepInit step = iota
	stepInitDone
	stepParseHeaders
	stepReadHeaders
	stepOnHeadersData
	stepHandleRequest
	stepFormResponse
	stepSendResponse
	stepRequestDone
	stepBodyDiscarded
)

// Coroutine is the suspending driver. Every blocking operation is awaited, so the executor's
// workers are never blocked. Errors occurred during reading and discarding are captured into
// ioErr instead of being returned, because they drop the connection silently, exactly as the
// blocking driver does.
type Coroutine struct {
	conn
	step     step
	endpoint router.Endpoint
	data     []byte
	ioErr    error
	failed   bool
}

func (c *Coroutine) Act() async.Action {
	switch c.step {
	case stepInit:
		c.step = stepInitDone
		return async.Await(func() error {
			c.ioErr = transport.Init(c.client)
			return nil
		})
	case stepInitDone:
		if c.ioErr != nil {
			c.log.Debug().Err(c.ioErr).Msg("connection initialization failed")
			return async.Finish()
		}

		c.step = stepParseHeaders
		return async.Yield()
	case stepParseHeaders:
		c.reset()
		c.failed = false
		c.step = stepReadHeaders
		return async.Yield()
	case stepReadHeaders:
		c.step = stepOnHeadersData
		return async.Await(func() error {
			c.data, c.ioErr = c.client.Read()
			return nil
		})
	case stepOnHeadersData:
		return c.onHeadersData()
	case stepHandleRequest:
		return c.handleRequest()
	case stepFormResponse:
		c.formResponse()
		c.step = stepSendResponse
		return async.Yield()
	case stepSendResponse:
		c.step = stepRequestDone
		return async.Await(c.send)
	case stepRequestDone:
		return c.requestDone()
	case stepBodyDiscarded:
		if c.ioErr != nil {
			c.log.Debug().Err(c.ioErr).Msg("failed to discard the request body")
			return async.Finish()
		}

		c.step = stepParseHeaders
		return async.Yield()
	default:
		return async.Error(status.ErrInternalServerError)
	}
}

func (c *Coroutine) onHeadersData() async.Action {
	data, err := c.data, c.ioErr
	c.data, c.ioErr = nil, nil

	if len(data) > 0 {
		if result, done, ferr := c.headers.Feed(c.client, data); done {
			return c.onHeadersParsed(result, ferr)
		}
	}

	if err != nil {
		return c.onHeadersParsed(c.headers.Interrupted(err), err)
	}

	c.step = stepReadHeaders
	return async.Yield()
}

func (c *Coroutine) onHeadersParsed(result http1.Result, err error) async.Action {
	endpoint, ok := c.onHeaders(result, err)
	if !ok {
		return async.Finish()
	}

	if endpoint == nil {
		c.step = stepFormResponse
	} else {
		c.endpoint = endpoint
		c.step = stepHandleRequest
	}

	return async.Yield()
}

func (c *Coroutine) handleRequest() async.Action {
	endpoint := c.endpoint
	c.endpoint = nil
	c.step = stepFormResponse

	asyncEndpoint, ok := endpoint.(router.AsyncEndpoint)
	if !ok {
		c.response = c.call(endpoint)
		return async.Yield()
	}

	return async.Suspend(func(resume func(error)) {
		var once sync.Once
		complete := func(resp func() *http.Response) {
			once.Do(func() {
				c.response = resp()
				resume(nil)
			})
		}

		defer func() {
			if r := recover(); r != nil {
				complete(func() *http.Response {
					return c.fromPanic(r)
				})
			}
		}()

		asyncEndpoint.HandleAsync(c.request, func(resp *http.Response, err error) {
			complete(func() *http.Response {
				return c.result(resp, err)
			})
		})
	})
}

func (c *Coroutine) requestDone() async.Action {
	c.completed()

	switch c.connState {
	case KeepAlive:
		c.step = stepBodyDiscarded
		return async.Await(func() error {
			c.ioErr = c.discard()
			return nil
		})
	case Upgrade:
		if handle := c.handoff(); handle != nil {
			// the handler may block for as long as it wants, but not on a worker
			go handle()
		}

		return async.Finish()
	default:
		return async.Finish()
	}
}

// HandleError is called on failed sends and on unexpected failures of the steps.
func (c *Coroutine) HandleError(err error) async.Action {
	switch {
	case c.step == stepRequestDone:
		c.sendFailed(err)
		return async.Error(err)
	case transport.IsPeerGone(err):
		return async.Error(err)
	case c.failed || c.step > stepFormResponse:
		c.log.Error().Err(err).Msg("failure after the response was formed, dropping the connection")
		return async.Error(err)
	}

	c.failed = true
	c.forceClose = true
	c.response = c.fromError(err)
	c.step = stepFormResponse

	return async.Yield()
}

// Finalize releases the connection, unless it was handed off.
func (c *Coroutine) Finalize(error) {
	c.close()
}
