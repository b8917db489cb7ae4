package http

import (
	"net"

	"github.com/indigo-web/exchange/http/proto"
	"github.com/indigo-web/exchange/kv"
	"github.com/indigo-web/exchange/transport"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
	Vars    = *kv.Storage
)

// StartLine is the parsed request line.
type StartLine struct {
	Method string
	// Path is the request target exactly as it was received.
	Path     string
	Protocol proto.Protocol
}

// Request represents HTTP request. Its strings are backed by a per-connection buffer, so they
// stay valid only until the next request on the same connection begins. Clone them if they
// must outlive the exchange.
type Request struct {
	StartLine
	// Headers holds non-normalized header pairs in the order they were received, even though
	// lookup is case-insensitive.
	Headers Headers
	// Vars are path variables extracted by the router.
	Vars Vars
	// Remote holds the remote address. Please note that this is generally not a good parameter to
	// identify a user, because there might be proxies in the middle.
	Remote  net.Addr
	client  transport.Client
	decoder BodyDecoder
	body    *Body
}

func NewRequest(
	line StartLine, headers, vars *kv.Storage, client transport.Client, decoder BodyDecoder,
) *Request {
	if vars == nil {
		vars = kv.New()
	}

	return &Request{
		StartLine: line,
		Headers:   headers,
		Vars:      vars,
		Remote:    client.Remote(),
		client:    client,
		decoder:   decoder,
	}
}

// Body returns the request body. It's decoded on demand directly from the connection, and
// may be read only once.
func (r *Request) Body() *Body {
	if r.body == nil {
		if r.decoder == nil {
			r.body = newBody(nil, nil)
		} else {
			r.body = newBody(r.decoder.Decode(r, r.client))
		}
	}

	return r.body
}

// Respond returns a new response with 200 OK status code.
func (r *Request) Respond() *Response {
	return NewResponse()
}

// Respond is a handler shortcut, responding 200 OK with no body.
func Respond(*Request) *Response {
	return NewResponse()
}
