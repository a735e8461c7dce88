package http

import (
	"net/url"
	"strings"
	"sync"
)

// Request is an HTTP request assembled incrementally from parser events.
// It must not be modified once the message is complete.
type Request struct {
	method  Method
	url     []byte
	headers Headers
	body    []byte

	// lastWasValue tracks whether the previous header event was a value,
	// so that the next field event starts a new header.
	lastWasValue bool
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			url:  make([]byte, 0, 64),
			body: make([]byte, 0, 1024),
		}
	},
}

// AcquireRequest returns an empty request from the pool.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets req and returns it to the pool.
func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

// Reset clears the request for reuse (memory not freed, just reset).
func (r *Request) Reset() {
	r.method = MethodGet
	r.url = r.url[:0]
	r.headers.Reset()
	r.body = r.body[:0]
	r.lastWasValue = false
}

// Method returns the request method.
func (r *Request) Method() Method { return r.method }

// URL returns the request target exactly as received.
func (r *Request) URL() string { return string(r.url) }

// Path returns the request target without its query string.
func (r *Request) Path() string {
	path, _, _ := strings.Cut(string(r.url), "?")
	return path
}

// RawQuery returns the part of the request target after '?'.
func (r *Request) RawQuery() string {
	_, query, _ := strings.Cut(string(r.url), "?")
	return query
}

// Query parses the query string. Malformed pairs are skipped.
func (r *Request) Query() url.Values {
	values, _ := url.ParseQuery(r.RawQuery())
	return values
}

// Header returns the first header value with the given name.
func (r *Request) Header(name string) (string, bool) { return r.headers.Get(name) }

// Headers returns the request headers in arrival order.
func (r *Request) Headers() *Headers { return &r.headers }

// Body returns the request body.
func (r *Request) Body() []byte { return r.body }

// BodyLength returns the number of body bytes received.
func (r *Request) BodyLength() int { return len(r.body) }

// SetMethod records the method parsed from the request line.
func (r *Request) SetMethod(m Method) { r.method = m }

// AppendURL appends a piece of the request target.
func (r *Request) AppendURL(b []byte) { r.url = append(r.url, b...) }

// AppendHeaderField appends a piece of a header name. A field event that
// follows a value event starts a new header.
func (r *Request) AppendHeaderField(b []byte) {
	last := r.headers.last()
	if last == nil || r.lastWasValue {
		r.endValue()
		r.headers.Add(string(b), "")
	} else {
		last.Name += string(b)
	}
	r.lastWasValue = false
}

// AppendHeaderValue appends a piece of the current header's value.
func (r *Request) AppendHeaderValue(b []byte) {
	last := r.headers.last()
	if last == nil {
		return
	}
	last.Value += string(b)
	r.lastWasValue = true
}

// EndHeaders finalizes the last header. Call it on headers-complete.
func (r *Request) EndHeaders() {
	r.endValue()
	r.lastWasValue = false
}

// endValue drops trailing whitespace from the value just completed; leading
// whitespace never reaches the request.
func (r *Request) endValue() {
	if !r.lastWasValue {
		return
	}
	if last := r.headers.last(); last != nil {
		last.Value = strings.TrimRight(last.Value, " \t")
	}
}

// AppendBody appends a piece of the body.
func (r *Request) AppendBody(b []byte) { r.body = append(r.body, b...) }
