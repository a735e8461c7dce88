package http

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseSeedsHeaders(t *testing.T) {
	r := NewResponse(StatusOK)
	defer r.Release()

	want := []Header{
		{"Server", "libreidp"},
		{"Content-Length", "0"},
		{"Connection", "close"},
	}
	assert.Equal(t, want, r.Headers())
}

func TestSetBodyDerivesContentLength(t *testing.T) {
	bodies := []string{"", "x", "hello", string(make([]byte, 4096))}
	for _, b := range bodies {
		r := NewResponse(StatusOK)
		r.SetBody([]byte(b))
		cl, ok := r.Header("Content-Length")
		require.True(t, ok)
		assert.Equal(t, strconv.Itoa(len(b)), cl)
		assert.Len(t, r.String(), r.StringLength())
		r.Release()
	}
}

func TestContentLengthCannotBeOverridden(t *testing.T) {
	r := NewResponse(StatusOK)
	defer r.Release()
	r.SetBodyString("abc")
	r.SetHeader("Content-Length", "999")

	cl, _ := r.Header("content-length")
	assert.Equal(t, "3", cl)
}

func TestAddHeaderCannotDuplicateContentLength(t *testing.T) {
	r := NewResponse(StatusOK)
	defer r.Release()
	r.SetBodyString("hello")
	require.NoError(t, r.AddHeader("Content-Length", "99"))
	require.NoError(t, r.AddHeader("content-length", "7"))

	want := "HTTP/1.1 200 OK\r\n" +
		"Server: libreidp\r\n" +
		"Content-Length: 5\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"hello\r\n"
	assert.Equal(t, want, r.String())
	assert.Len(t, r.String(), r.StringLength())
}

func TestHeadersReturnsCopy(t *testing.T) {
	r := NewResponse(StatusOK)
	defer r.Release()
	r.SetBodyString("hello")

	hdrs := r.Headers()
	for i := range hdrs {
		hdrs[i].Value = "7"
	}
	cl, _ := r.Header("Content-Length")
	assert.Equal(t, "5", cl)
	server, _ := r.Header("Server")
	assert.Equal(t, ServerName, server)
}

func TestSetHeaderRejectsInvalidFields(t *testing.T) {
	r := NewResponse(StatusOK)
	defer r.Release()
	before := r.String()

	cases := []struct{ name, value string }{
		{"X-Evil", "a\r\nSet-Cookie: session=1"},
		{"X-Evil", "line\nbreak"},
		{"Bad Name", "v"},
		{"X-Evil\r\nInjected", "v"},
		{"", "v"},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, r.SetHeader(tc.name, tc.value), ErrInvalidHeader, "%q: %q", tc.name, tc.value)
		assert.ErrorIs(t, r.AddHeader(tc.name, tc.value), ErrInvalidHeader, "%q: %q", tc.name, tc.value)
	}
	assert.Equal(t, before, r.String())

	require.NoError(t, r.SetHeader("X-Request-Id", "abc\tdef"))
}

func TestSerializeWithBody(t *testing.T) {
	r := NewResponse(StatusNotFound)
	defer r.Release()
	body := "<html><body>gone</body></html>"
	r.SetBodyString(body)

	want := "HTTP/1.1 404 Not Found\r\n" +
		"Server: libreidp\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		body + "\r\n"
	assert.Equal(t, want, r.String())
	assert.Equal(t, len(want), r.StringLength())
}

func TestSerializeEmptyBodyOmitsTrailingCRLF(t *testing.T) {
	r := NewResponse(StatusOK)
	defer r.Release()
	r.SetBody(nil)

	want := "HTTP/1.1 200 OK\r\nServer: libreidp\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
	assert.Equal(t, want, r.String())
}

func TestSerializeIsIdempotent(t *testing.T) {
	r := NewResponse(StatusFound)
	defer r.Release()
	r.SetHeader("Location", "https://client.example/cb?code=1")
	r.SetBodyString("redirect")

	first := r.AppendTo(nil)
	second := r.AppendTo(nil)
	assert.Equal(t, first, second)
}

func TestUnknownStatusSerializes(t *testing.T) {
	r := NewResponse(StatusCode(418))
	defer r.Release()
	assert.Equal(t, "HTTP/1.1 418 Unknown\r\n", r.String()[:len("HTTP/1.1 418 Unknown\r\n")])
	assert.Len(t, r.String(), r.StringLength())
}

func TestNotFoundPage(t *testing.T) {
	r := NotFound()
	defer r.Release()

	assert.Equal(t, StatusNotFound, r.Status())
	ct, _ := r.Header("Content-Type")
	assert.Equal(t, "text/html", ct)
	server, _ := r.Header("Server")
	assert.Equal(t, "libreidp", server)
	conn, _ := r.Header("Connection")
	assert.Equal(t, "close", conn)
	cl, _ := r.Header("Content-Length")
	assert.Equal(t, strconv.Itoa(len(notFoundBody)), cl)
	assert.Equal(t, notFoundBody, string(r.Body()))
}

func TestReleaseTwiceIsSafe(t *testing.T) {
	r := NewResponse(StatusOK)
	r.Release()
	assert.NotPanics(t, r.Release)
}

func TestHeaderLookupUsesValueEquality(t *testing.T) {
	var h Headers
	h.Add("X-Request-Id", "1")
	h.Add("x-request-id", "2")

	name := string([]byte("X-REQUEST-ID"))
	v, ok := h.Get(name)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = h.Get("X-Missing")
	assert.False(t, ok)
}

func TestMethodAndStatusStrings(t *testing.T) {
	m, ok := ParseMethod([]byte("POST"))
	assert.True(t, ok)
	assert.Equal(t, "POST", m.String())
	_, ok = ParseMethod([]byte("get"))
	assert.False(t, ok)

	assert.Equal(t, "200 OK", StatusOK.String())
	assert.Equal(t, "owning", Owning.String())
	assert.Equal(t, "borrowing", Borrowing.String())
}
