package config

import (
	"time"
)

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	NETWriteBufferSize struct {
		Default, Maximal int
	}
)

type (
	Headers struct {
		// MaxSize limits the whole header block, including the request line and all the
		// CRLFs. Exceeding it results in status.ErrHeaderFieldsTooLarge.
		MaxSize int
		// InitialBufferSize is the initial capacity of the per-connection buffer, accumulating
		// the header block. It grows on demand, but never beyond MaxSize.
		InitialBufferSize int
		// Number is responsible for headers storage size.
		// Default value is an initial size of allocated headers storage.
		// Maximal value is maximum number of headers allowed to be presented
		Number HeadersNumber
		// Default headers are headers to be included into every response implicitly, unless
		// explicitly overridden.
		Default map[string]string `test:"nullable"`
	}

	Body struct {
		// MaxSize describes the maximal size of a body, that can be processed. 0 will discard
		// any request with body (each call to request's body will result in status.ErrBodyTooLarge).
		// In order to disable the setting, use the math.MaxUInt64 value.
		MaxSize uint64
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
		// WriteBufferSize stores the HTTP response, which is going to be transmitted.
		// The buffer starts at Default and grows up to Maximal, so responses fitting into
		// the Maximal boundary are written at once.
		WriteBufferSize NETWriteBufferSize
	}

	HTTP struct {
		// ServerName is the value of the Server header, which is set for every response
		// that doesn't carry one.
		ServerName string
	}

	Async struct {
		// Workers is the number of goroutines, executing coroutines' steps. The I/O itself
		// happens outside the workers, so they must never block.
		Workers int
		// QueueSize is the capacity of the ready-to-run queue.
		QueueSize int
	}
)

// Config holds settings used across various parts of the processor, mainly restrictions,
// limitations and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Headers Headers
	Body    Body
	NET     NET
	HTTP    HTTP
	Async   Async
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		Headers: Headers{
			MaxSize:           4 * 1024,
			InitialBufferSize: 2 * 1024,
			Number: HeadersNumber{
				Default: 10,
				Maximal: 50,
			},
			Default: make(map[string]string),
		},
		Body: Body{
			MaxSize: 512 * 1024 * 1024, // 512 megabytes
		},
		NET: NET{
			ReadBufferSize:            2 * 1024,
			ReadTimeout:               90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			WriteBufferSize: NETWriteBufferSize{
				Default: 2 * 1024,
				Maximal: 64 * 1024,
			},
		},
		HTTP: HTTP{
			ServerName: "indigo-exchange",
		},
		Async: Async{
			Workers:   4,
			QueueSize: 1024,
		},
	}
}
