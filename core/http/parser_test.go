package http

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assembler collects parser events into a Request the way a connection does.
type assembler struct {
	req       *Request
	completed int
	failOn    string
}

func newAssembler() *assembler {
	return &assembler{req: AcquireRequest()}
}

var errHook = errors.New("hook failed")

func (a *assembler) check(event string) error {
	if a.failOn == event {
		return errHook
	}
	return nil
}

func (a *assembler) OnURL(b []byte) error         { a.req.AppendURL(b); return a.check("url") }
func (a *assembler) OnHeaderField(b []byte) error { a.req.AppendHeaderField(b); return a.check("field") }
func (a *assembler) OnHeaderValue(b []byte) error { a.req.AppendHeaderValue(b); return a.check("value") }
func (a *assembler) OnHeadersComplete() error     { a.req.EndHeaders(); return a.check("headers") }
func (a *assembler) OnBody(b []byte) error        { a.req.AppendBody(b); return a.check("body") }
func (a *assembler) OnMessageComplete() error {
	a.completed++
	return a.check("complete")
}

func parseAll(t *testing.T, raw string, chunk int) (*Parser, *assembler, error) {
	t.Helper()
	a := newAssembler()
	p := NewParser(a, DefaultParserConfig())
	data := []byte(raw)
	for len(data) > 0 && !p.Done() {
		n := chunk
		if n > len(data) {
			n = len(data)
		}
		consumed, err := p.Execute(data[:n])
		if err != nil {
			return p, a, err
		}
		data = data[consumed:]
	}
	a.req.SetMethod(p.Method())
	return p, a, nil
}

func TestParseSimpleGet(t *testing.T) {
	raw := "GET /authorize?client_id=abc&state=x HTTP/1.1\r\nHost: idp.example\r\nAccept: */*\r\n\r\n"
	for _, chunk := range []int{1, 2, 3, 7, len(raw)} {
		p, a, err := parseAll(t, raw, chunk)
		require.NoError(t, err, "chunk=%d", chunk)
		assert.True(t, p.Done())
		assert.Equal(t, 1, a.completed)

		req := a.req
		assert.Equal(t, MethodGet, req.Method())
		assert.Equal(t, "/authorize?client_id=abc&state=x", req.URL())
		assert.Equal(t, "/authorize", req.Path())
		assert.Equal(t, "abc", req.Query().Get("client_id"))
		assert.Equal(t, 2, req.Headers().Len())
		host, ok := req.Header("host")
		assert.True(t, ok)
		assert.Equal(t, "idp.example", host)
		assert.Equal(t, 0, req.BodyLength())
	}
}

func TestParseContentLengthBody(t *testing.T) {
	raw := "POST /token HTTP/1.1\r\nContent-Length: 11\r\nContent-Type: text/plain\r\n\r\nhello world"
	for _, chunk := range []int{1, 5, len(raw)} {
		_, a, err := parseAll(t, raw, chunk)
		require.NoError(t, err)
		assert.Equal(t, MethodPost, a.req.Method())
		assert.Equal(t, "hello world", string(a.req.Body()))
		assert.Equal(t, 11, a.req.BodyLength())
	}
}

func TestParseChunkedBody(t *testing.T) {
	raw := "POST /token HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6;ext=1\r\n world\r\n0\r\nX-Trailer: yes\r\n\r\n"
	for _, chunk := range []int{1, 4, len(raw)} {
		p, a, err := parseAll(t, raw, chunk)
		require.NoError(t, err, "chunk=%d", chunk)
		assert.True(t, p.Done())
		assert.Equal(t, "hello world", string(a.req.Body()))
	}
}

func TestParseStopsAfterMessage(t *testing.T) {
	a := newAssembler()
	p := NewParser(a, DefaultParserConfig())
	first := "GET / HTTP/1.1\r\n\r\n"
	n, err := p.Execute([]byte(first + "GET /next HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, len(first), n)
	assert.Equal(t, 1, a.completed)

	n, err = p.Execute([]byte("more"))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseEmptyHeaderValue(t *testing.T) {
	_, a, err := parseAll(t, "GET / HTTP/1.1\r\nX-Empty:\r\nX-Next: 1\r\n\r\n", 1)
	require.NoError(t, err)
	require.Equal(t, 2, a.req.Headers().Len())
	v, ok := a.req.Header("X-Empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	v, _ = a.req.Header("X-Next")
	assert.Equal(t, "1", v)
}

func TestParseTrimsTrailingValueWhitespace(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Token: abc  \t\r\nX-Blank:   \r\nX-Inner: a b\t \r\n\r\n"
	for _, chunk := range []int{1, 2, 5, len(raw)} {
		_, a, err := parseAll(t, raw, chunk)
		require.NoError(t, err, "chunk=%d", chunk)
		v, ok := a.req.Header("X-Token")
		require.True(t, ok)
		assert.Equal(t, "abc", v, "chunk=%d", chunk)
		v, ok = a.req.Header("X-Blank")
		require.True(t, ok)
		assert.Equal(t, "", v, "chunk=%d", chunk)
		v, _ = a.req.Header("X-Inner")
		assert.Equal(t, "a b", v, "chunk=%d", chunk)
	}
}

func TestParserVersion(t *testing.T) {
	p, _, err := parseAll(t, "GET / HTTP/1.1\r\n\r\n", 64)
	require.NoError(t, err)
	major, minor := p.Version()
	assert.Equal(t, 1, major)
	assert.Equal(t, 1, minor)

	p, _, err = parseAll(t, "GET / HTTP/1.0\r\n\r\n", 64)
	require.NoError(t, err)
	major, minor = p.Version()
	assert.Equal(t, 1, major)
	assert.Equal(t, 0, minor)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"unsupported method", "PUT / HTTP/1.1\r\n\r\n", ErrInvalidMethod},
		{"garbage method", "G@T / HTTP/1.1\r\n\r\n", ErrInvalidMethod},
		{"empty url", "GET  HTTP/1.1\r\n\r\n", ErrInvalidURL},
		{"control in url", "GET /\x01 HTTP/1.1\r\n\r\n", ErrInvalidURL},
		{"bad version", "GET / HTTP/2.0\r\n\r\n", ErrInvalidVersion},
		{"bad version text", "GET / HTTQ/1.1\r\n\r\n", ErrInvalidVersion},
		{"space in header name", "GET / HTTP/1.1\r\nBad Name: x\r\n\r\n", ErrInvalidHeader},
		{"bare cr", "GET / HTTP/1.1\r\nA: b\rX\r\n\r\n", ErrInvalidHeader},
		{"negative length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", ErrInvalidContentLength},
		{"conflicting length", "POST / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\n", ErrInvalidContentLength},
		{"length and chunked", "POST / HTTP/1.1\r\nContent-Length: 1\r\nTransfer-Encoding: chunked\r\n\r\n", ErrInvalidContentLength},
		{"unknown coding", "POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n", ErrInvalidHeader},
		{"bad chunk size", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n", ErrInvalidChunk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseAll(t, tt.raw, len(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseErrorIsSticky(t *testing.T) {
	p := NewParser(newAssembler(), DefaultParserConfig())
	_, err := p.Execute([]byte("BREW / HTTP/1.1\r\n"))
	require.Error(t, err)

	_, again := p.Execute([]byte("GET / HTTP/1.1\r\n\r\n"))
	assert.Equal(t, err, again)
}

func TestParseLimits(t *testing.T) {
	p := NewParser(newAssembler(), ParserConfig{MaxHeaderBytes: 32, MaxBodyBytes: 4})
	_, err := p.Execute([]byte("GET /a-very-long-path-that-does-not-fit HTTP/1.1\r\n\r\n"))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	cfg := ParserConfig{MaxHeaderBytes: 1024, MaxBodyBytes: 4}
	p = NewParser(newAssembler(), cfg)
	_, err = p.Execute([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\n"))
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	p = NewParser(newAssembler(), cfg)
	_, err = p.Execute([]byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n3\r\nabc\r\n"))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestParseHookErrorAborts(t *testing.T) {
	a := newAssembler()
	a.failOn = "complete"
	p := NewParser(a, DefaultParserConfig())
	_, err := p.Execute([]byte("GET / HTTP/1.1\r\n\r\n"))
	assert.ErrorIs(t, err, errHook)
}

func TestShouldKeepAlive(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"GET / HTTP/1.1\r\n\r\n", true},
		{"GET / HTTP/1.1\r\nConnection: close\r\n\r\n", false},
		{"GET / HTTP/1.0\r\n\r\n", false},
		{"GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", true},
	}
	for _, tt := range tests {
		p, _, err := parseAll(t, tt.raw, len(tt.raw))
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.ShouldKeepAlive(), tt.raw)
	}
}

func TestParserReset(t *testing.T) {
	a := newAssembler()
	p := NewParser(a, DefaultParserConfig())
	_, err := p.Execute([]byte("GET /one HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.True(t, p.Done())

	p.Reset()
	a.req.Reset()
	_, err = p.Execute([]byte("POST /two HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, MethodPost, p.Method())
	assert.Equal(t, "/two", a.req.Path())
	assert.Equal(t, 2, a.completed)
}
