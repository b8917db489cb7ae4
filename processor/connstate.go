package processor

import (
	"github.com/indigo-web/exchange/http"
	"github.com/indigo-web/exchange/http/proto"
	"github.com/indigo-web/exchange/http/status"
	"github.com/indigo-web/exchange/internal/strutil"
)

// ConnectionState is the disposition of a connection after an exchange.
type ConnectionState uint8

const (
	// Close means the connection must be closed after the response is sent.
	Close ConnectionState = iota
	// KeepAlive means the next request may follow on the same connection.
	KeepAlive
	// Upgrade means the connection is handed off to the response's upgrade handler.
	Upgrade
)

func (c ConnectionState) String() string {
	switch c {
	case Close:
		return "close"
	case KeepAlive:
		return "keep-alive"
	case Upgrade:
		return "upgrade"
	default:
		return "unknown"
	}
}

// ConsiderConnectionState decides what happens to the connection after the response is sent.
// The request may be nil, if there's none to consider (e.g. it failed to be parsed), in which
// case it's always Close. The function has no side effects.
func ConsiderConnectionState(request *http.Request, response *http.Response) ConnectionState {
	if request == nil {
		return Close
	}

	fields := response.Expose()
	outbound := fields.Headers.Value("Connection")

	if fields.Code == status.SwitchingProtocols && strutil.HasToken(outbound, "upgrade") {
		return Upgrade
	}

	if strutil.HasToken(outbound, "close") {
		return Close
	}

	inbound := request.Headers.Value("Connection")
	if strutil.HasToken(inbound, "close") {
		return Close
	}

	switch request.Protocol {
	case proto.HTTP11:
		// persistent by default
	case proto.HTTP10:
		if !strutil.HasToken(inbound, "keep-alive") {
			return Close
		}

		if !fields.Sized() {
			// HTTP/1.0 peers have no chunked coding, so an unsized body is delimited
			// by closing the connection
			return Close
		}
	default:
		return Close
	}

	return KeepAlive
}
