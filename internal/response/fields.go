package response

import (
	"io"

	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/exchange/transport"
)

const DefaultContentType = "text/plain; charset=utf-8"

// UpgradeHandler takes over a connection after the response is sent.
type UpgradeHandler interface {
	HandleConnection(client transport.Client, params *kv.Storage)
}

type Fields struct {
	Code    status.Code
	Status  status.Status
	Headers *kv.Storage
	Body    []byte
	// Stream has priority over Body. StreamSize of -1 means the size isn't known in advance.
	Stream     io.Reader
	StreamSize int64
	Upgrade    UpgradeHandler
	// UpgradeParams are passed to the Upgrade handler as they are.
	UpgradeParams *kv.Storage
}

// Sized reports whether the body length is known before it's sent.
func (f *Fields) Sized() bool {
	return f.Stream == nil || f.StreamSize >= 0
}
