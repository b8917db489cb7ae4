package http

import (
	"github.com/indigo-web/exchange/internal/response"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/exchange/transport"
)

// UpgradeHandler takes over the connection after a 101 Switching Protocols response is sent.
// It's called exactly once, and from that moment the connection belongs to it, including its
// closing.
type UpgradeHandler = response.UpgradeHandler

type UpgradeHandlerFunc func(client transport.Client, params *kv.Storage)

func (u UpgradeHandlerFunc) HandleConnection(client transport.Client, params *kv.Storage) {
	u(client, params)
}
