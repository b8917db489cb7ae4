// Package processor drives HTTP/1.x exchanges over a single connection. There are two drivers
// sharing the very same semantics: Task occupies a goroutine for the whole connection's lifetime,
// while Coroutine is a state machine stepped by an async.Executor and never blocks a worker.
// Both produce byte-identical responses for identical inputs.
package processor

import (
	"os"
	"slices"

	"github.com/indigo-web/exchange/config"
	"github.com/indigo-web/exchange/errhandler"
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/internal/protocol/http1"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/exchange/router"
	"github.com/indigo-web/exchange/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/rs/zerolog"
)

// Processor holds everything shared between connections. It's immutable once built, so a
// single instance serves any number of connections concurrently.
type Processor struct {
	cfg            *config.Config
	router         router.Router
	interceptors   []router.Interceptor
	errHandler     errhandler.ErrorHandler
	decoder        http.BodyDecoder
	logger         zerolog.Logger
	defaultHeaders []kv.Pair
}

type Option func(p *Processor)

// WithInterceptors appends interceptors. They're invoked in the order they were added.
func WithInterceptors(interceptors ...router.Interceptor) Option {
	return func(p *Processor) {
		p.interceptors = append(p.interceptors, interceptors...)
	}
}

func WithErrorHandler(handler errhandler.ErrorHandler) Option {
	return func(p *Processor) {
		p.errHandler = handler
	}
}

// WithBodyDecoder replaces the default decoder, which supports Content-Length and chunked
// request bodies.
func WithBodyDecoder(decoder http.BodyDecoder) Option {
	return func(p *Processor) {
		p.decoder = decoder
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

func New(cfg *config.Config, r router.Router, opts ...Option) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}

	p := &Processor{
		cfg:            cfg,
		router:         r,
		errHandler:     errhandler.Default(cfg.HTTP.ServerName),
		decoder:        http1.NewBodyDecoder(cfg.Body),
		logger:         zerolog.New(os.Stderr).With().Timestamp().Logger(),
		defaultHeaders: defaultHeaders(cfg),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Task returns the blocking driver for the connection. The driver owns the client from now
// on: it's closed when the driver exits, unless handed off to an upgrade handler.
func (p *Processor) Task(client transport.Client) *Task {
	return &Task{conn: p.newConn(client)}
}

// Coroutine returns the suspending driver for the connection. Ownership rules are the same
// as for Task.
func (p *Processor) Coroutine(client transport.Client) *Coroutine {
	return &Coroutine{conn: p.newConn(client)}
}

// defaultHeaders returns the headers applied to every response lacking them. The order is
// stable, so that identical exchanges produce identical bytes.
func defaultHeaders(cfg *config.Config) []kv.Pair {
	headers := []kv.Pair{{Key: "Server", Value: cfg.HTTP.ServerName}}

	keys := make([]string, 0, len(cfg.Headers.Default))
	for key := range cfg.Headers.Default {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		if strcomp.EqualFold(key, "Server") {
			headers[0].Value = cfg.Headers.Default[key]
			continue
		}

		headers = append(headers, kv.Pair{Key: key, Value: cfg.Headers.Default[key]})
	}

	return headers
}
