package http

import (
	"io"

	"github.com/indigo-web/exchange/transport"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// BodyDecoder binds a request to its body. It must never read past the end of the body, so
// the connection stays positioned at the beginning of the next request.
type BodyDecoder interface {
	Decode(request *Request, client transport.Client) (io.Reader, error)
}

// Body is a one-shot reader of the request body.
type Body struct {
	reader io.Reader
	err    error
}

func newBody(reader io.Reader, err error) *Body {
	return &Body{
		reader: reader,
		err:    err,
	}
}

// Read implements io.Reader. Errors occurred while binding the body are returned on the
// first read.
func (b *Body) Read(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}

	if b.reader == nil {
		return 0, io.EOF
	}

	return b.reader.Read(p)
}

// Bytes reads the whole body.
func (b *Body) Bytes() ([]byte, error) {
	return io.ReadAll(b)
}

// String reads the whole body and returns it as a string.
func (b *Body) String() (string, error) {
	data, err := b.Bytes()
	return uf.B2S(data), err
}

// JSON decodes the body into the model.
func (b *Body) JSON(model any) error {
	return json.NewDecoder(b).Decode(model)
}

// Discard reads the rest of the body out.
func (b *Body) Discard() error {
	_, err := io.Copy(io.Discard, b)
	return err
}
