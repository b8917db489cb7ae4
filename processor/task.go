package processor

import (
	"github.com/indigo-web/exchange/transport"
)

// Task is the blocking driver. It processes exchanges one by one until the connection is
// closed, dropped or handed off.
type Task struct {
	conn
}

// Run blocks until the connection is done with. The client is closed on exit, unless it
// was handed off to an upgrade handler, which in this case is run on the same goroutine.
func (t *Task) Run() {
	defer t.close()

	if err := transport.Init(t.client); err != nil {
		t.log.Debug().Err(err).Msg("connection initialization failed")
		return
	}

	for {
		t.reset()

		endpoint, ok := t.onHeaders(t.headers.Read(t.client))
		if !ok {
			return
		}

		if endpoint != nil {
			t.response = t.call(endpoint)
		}

		t.formResponse()

		if err := t.send(); err != nil {
			t.sendFailed(err)
			return
		}

		t.completed()

		switch t.connState {
		case KeepAlive:
			if err := t.discard(); err != nil {
				t.log.Debug().Err(err).Msg("failed to discard the request body")
				return
			}
		case Upgrade:
			if handle := t.handoff(); handle != nil {
				handle()
			}

			return
		default:
			return
		}
	}
}
