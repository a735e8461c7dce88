package http

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/http/httpguts"
)

// ServerName is the value of the Server header on every response.
const ServerName = "libreidp"

// Response is an HTTP response. The Content-Length header always equals the
// body length.
type Response struct {
	status   StatusCode
	headers  Headers
	body     []byte
	released bool
}

var responsePool = sync.Pool{
	New: func() any {
		return &Response{}
	},
}

// NewResponse returns a response seeded with the Server, Content-Length
// and Connection headers.
func NewResponse(code StatusCode) *Response {
	r := responsePool.Get().(*Response)
	r.released = false
	r.status = code
	r.headers.Add("Server", ServerName)
	r.headers.Add("Content-Length", "0")
	r.headers.Add("Connection", "close")
	return r
}

// Release returns the response to the pool. Releasing twice is a no-op.
func (r *Response) Release() {
	if r == nil || r.released {
		return
	}
	r.status = 0
	r.headers.Reset()
	r.body = r.body[:0]
	r.released = true
	responsePool.Put(r)
}

// Status returns the status code.
func (r *Response) Status() StatusCode { return r.status }

// SetStatus changes the status code.
func (r *Response) SetStatus(code StatusCode) { r.status = code }

// Header returns the first header value with the given name.
func (r *Response) Header(name string) (string, bool) { return r.headers.Get(name) }

// Headers returns a copy of the response headers in wire order.
func (r *Response) Headers() []Header { return r.headers.All() }

// SetHeader replaces or appends a header. Content-Length cannot be set
// directly; it is always derived from the body. Names and values that are
// not valid on the wire are rejected.
func (r *Response) SetHeader(name, value string) error {
	if err := validHeader(name, value); err != nil {
		return err
	}
	if !isContentLength(name) {
		r.headers.Set(name, value)
	}
	return nil
}

// AddHeader appends a header even if one with the same name exists.
// Content-Length is ignored, as in SetHeader.
func (r *Response) AddHeader(name, value string) error {
	if err := validHeader(name, value); err != nil {
		return err
	}
	if !isContentLength(name) {
		r.headers.Add(name, value)
	}
	return nil
}

func isContentLength(name string) bool {
	return strings.EqualFold(name, "Content-Length")
}

func validHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: value for %s", ErrInvalidHeader, name)
	}
	return nil
}

// SetBody copies b into the response body and updates Content-Length.
func (r *Response) SetBody(b []byte) {
	r.body = append(r.body[:0], b...)
	r.syncContentLength()
}

// SetBodyString is SetBody for a string.
func (r *Response) SetBodyString(s string) {
	r.body = append(r.body[:0], s...)
	r.syncContentLength()
}

// Body returns the response body.
func (r *Response) Body() []byte { return r.body }

func (r *Response) syncContentLength() {
	r.headers.Set("Content-Length", strconv.Itoa(len(r.body)))
}

// StringLength returns exactly len(r.AppendTo(nil)), so callers can size
// output buffers up front.
func (r *Response) StringLength() int {
	n := len("HTTP/1.1 ") + decimalLen(int(r.status)) + 1 + len(r.status.Reason()) + 2
	n += r.headers.wireLength()
	n += 2
	if len(r.body) > 0 {
		n += len(r.body) + 2
	}
	return n
}

// AppendTo serializes the response onto dst: status line, headers, a blank
// line, then the body followed by CRLF when the body is not empty.
func (r *Response) AppendTo(dst []byte) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(r.status), 10)
	dst = append(dst, ' ')
	dst = append(dst, r.status.Reason()...)
	dst = append(dst, '\r', '\n')
	dst = r.headers.AppendTo(dst)
	dst = append(dst, '\r', '\n')
	if len(r.body) > 0 {
		dst = append(dst, r.body...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}

// String returns the wire form of the response.
func (r *Response) String() string {
	return string(r.AppendTo(make([]byte, 0, r.StringLength())))
}

func decimalLen(i int) int {
	n := 1
	if i < 0 {
		n++
		i = -i
	}
	for i >= 10 {
		i /= 10
		n++
	}
	return n
}

const notFoundBody = "<html><head><title>404 Not Found</title></head>" +
	"<body><h1>Not Found</h1>" +
	"<p>The requested resource could not be found on this server.</p>" +
	"</body></html>"

// NotFound builds the default page sent when no route matches.
func NotFound() *Response {
	r := NewResponse(StatusNotFound)
	r.SetHeader("Content-Type", "text/html")
	r.SetBodyString(notFoundBody)
	return r
}
