// Package exchange is a small HTTP/1.x server built around per-connection exchange
// processors. Every accepted connection is served either by a dedicated goroutine, or by
// a coroutine stepped by a fixed pool of workers (see App.Async).
package exchange

import (
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"

	"github.com/indigo-web/exchange/async"
	"github.com/indigo-web/exchange/config"
	"github.com/indigo-web/exchange/errhandler"
	"github.com/indigo-web/exchange/processor"
	"github.com/indigo-web/exchange/router"
	"github.com/indigo-web/exchange/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

var ErrNoRouter = errors.New("exchange: no router is provided")

// App binds a TCP listener and serves connections using a processor.
type App struct {
	addr         string
	cfg          *config.Config
	async        bool
	interceptors []router.Interceptor
	errHandler   errhandler.ErrorHandler
	logger       zerolog.Logger
	hooks        hooks
	tcp          *transport.TCP
	conns        *xsync.MapOf[net.Conn, struct{}]
	stopping     atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// New returns a new App instance.
func New(addr string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		addr:   addr,
		cfg:    config.Default(),
		logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
		tcp:    transport.NewTCP(),
		conns:  xsync.NewMapOf[net.Conn, struct{}](),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Tune replaces the default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Async makes the app serve connections with coroutines on a fixed worker pool, sized by
// config.Async, instead of a goroutine per connection.
func (a *App) Async(flag bool) *App {
	a.async = flag
	return a
}

// Use adds interceptors, invoked for every routed request in the order they're added.
func (a *App) Use(interceptors ...router.Interceptor) *App {
	a.interceptors = append(a.interceptors, interceptors...)
	return a
}

// ErrorHandler replaces the default plain-text error handler.
func (a *App) ErrorHandler(handler errhandler.ErrorHandler) *App {
	a.errHandler = handler
	return a
}

func (a *App) Logger(logger zerolog.Logger) *App {
	a.logger = logger
	return a
}

// NotifyOnStart calls the callback at the moment the listener is bound. Addr is valid
// from this point on.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback when all the connections are done with.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Addr returns the address the app is bound to. Useful when binding to port 0.
func (a *App) Addr() net.Addr {
	return a.tcp.Addr()
}

// Connections returns the number of currently served connections.
func (a *App) Connections() int {
	return a.conns.Size()
}

// Serve starts the application. It blocks until the app is stopped and all the connections
// are done with.
func (a *App) Serve(r router.Router) error {
	if r == nil {
		return ErrNoRouter
	}

	if err := a.tcp.Bind(a.addr); err != nil {
		return err
	}

	defer a.tcp.Close()

	opts := []processor.Option{
		processor.WithLogger(a.logger),
		processor.WithInterceptors(a.interceptors...),
	}
	if a.errHandler != nil {
		opts = append(opts, processor.WithErrorHandler(a.errHandler))
	}

	proc := processor.New(a.cfg, r, opts...)

	var executor *async.Executor
	if a.async {
		executor = async.NewExecutor(a.cfg.Async, a.logger)
	}

	a.logger.Info().Stringer("addr", a.Addr()).Bool("async", a.async).Msg("listening")
	callIfNotNil(a.hooks.OnStart)

	err := a.tcp.Listen(a.cfg.NET, func(conn net.Conn) {
		a.serveConn(a.ctx, proc, executor, conn)
	})
	if a.stopping.Load() && errors.Is(err, net.ErrClosed) {
		err = nil
	}

	a.tcp.Wait()
	if executor != nil {
		executor.Stop()
	}

	callIfNotNil(a.hooks.OnStop)

	return err
}

func (a *App) serveConn(ctx context.Context, proc *processor.Processor, executor *async.Executor, conn net.Conn) {
	client := transport.NewClient(conn, a.cfg.NET.ReadTimeout, make([]byte, a.cfg.NET.ReadBufferSize))
	a.conns.Store(conn, struct{}{})

	if executor == nil {
		proc.Task(client).Run()
		a.conns.Delete(conn)
		return
	}

	executor.Spawn(ctx, tracked{
		Coroutine: proc.Coroutine(client),
		release: func() {
			a.conns.Delete(conn)
		},
	})
}

// GracefulStop stops accepting new connections, but lets the present ones be served till
// they're closed.
func (a *App) GracefulStop() {
	a.stopping.Store(true)
	a.tcp.Stop()
	a.tcp.Close()
}

// Stop stops accepting new connections and closes all the present ones. Coroutines suspended
// in asynchronous endpoints are cancelled.
func (a *App) Stop() {
	a.GracefulStop()
	a.cancel()
	a.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
}

// tracked removes the connection from the registry once the coroutine is done with it.
type tracked struct {
	*processor.Coroutine
	release func()
}

func (t tracked) Finalize(err error) {
	t.Coroutine.Finalize(err)
	t.release()
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
