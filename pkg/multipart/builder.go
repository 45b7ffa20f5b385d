package multipart

import (
	"bytes"
	"fmt"
)

const crlf = "\r\n"

// Header is a single chunk header. Headers are kept as a slice so the
// emitted order is stable for the life of the stream.
type Header struct {
	Key   string
	Value string
}

// Builder frames payloads as self-delimited chunks of a persistent
// multipart response stream. It carries no state beyond the boundary
// token; every chunk is an independent transform.
type Builder struct {
	boundary string
}

func NewBuilder(boundary string) *Builder {
	return &Builder{boundary: boundary}
}

// ContentType returns the mimetype the response carrying this stream must
// declare.
func (b *Builder) ContentType() string {
	return "multipart/x-savi-stream; boundary=" + b.boundary
}

// Chunk wraps one payload: boundary line, header block, blank line, body,
// trailing CRLF. All chunks of a stream share the builder's boundary.
func (b *Builder) Chunk(headers []Header, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--%s%s", b.boundary, crlf)
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s%s", h.Key, h.Value, crlf)
	}
	buf.WriteString(crlf)
	buf.Write(body)
	buf.WriteString(crlf)
	return buf.Bytes()
}
