package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrInvalidMethod        = errors.New("invalid request method")
	ErrInvalidURL           = errors.New("invalid request target")
	ErrInvalidVersion       = errors.New("invalid HTTP version")
	ErrInvalidHeader        = errors.New("invalid header")
	ErrHeaderTooLarge       = errors.New("request head too large")
	ErrBodyTooLarge         = errors.New("request body too large")
	ErrInvalidContentLength = errors.New("invalid Content-Length")
	ErrInvalidChunk         = errors.New("invalid chunked encoding")
)

// ParseError reports where in the stream parsing failed.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("http: parse error at byte %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParserHooks receives parser events. Data events may fire several times for
// one element when it spans reads; each call carries the next piece.
// A hook error aborts parsing.
type ParserHooks interface {
	OnURL(data []byte) error
	OnHeaderField(data []byte) error
	OnHeaderValue(data []byte) error
	OnHeadersComplete() error
	OnBody(data []byte) error
	OnMessageComplete() error
}

// ParserConfig bounds what a single request may consume.
type ParserConfig struct {
	// MaxHeaderBytes limits the request line plus headers.
	MaxHeaderBytes int
	// MaxBodyBytes limits the decoded body.
	MaxBodyBytes int64
}

// DefaultParserConfig returns the limits used when none are configured.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		MaxHeaderBytes: 80 * 1024,
		MaxBodyBytes:   1 << 20,
	}
}

type parseState uint8

const (
	stMethod parseState = iota
	stURL
	stVersion
	stLineLF
	stHeaderStart
	stHeaderField
	stHeaderValueStart
	stHeaderValue
	stHeadersAlmostDone
	stBody
	stChunkSize
	stChunkExt
	stChunkSizeLF
	stChunkData
	stChunkDataCR
	stChunkDataLF
	stTrailerStart
	stTrailerLine
	stTrailerLF
	stDone
	stError
)

// Known headers the parser itself must interpret.
type knownHeader uint8

const (
	hdrOther knownHeader = iota
	hdrContentLength
	hdrTransferEncoding
	hdrConnection
)

const (
	maxMethodLen     = 7
	maxVersionLen    = 8
	maxKnownNameLen  = 32
	maxKnownValueLen = 1024
)

// Parser is an incremental HTTP/1.x request parser. Execute may be called
// with arbitrary slices of the stream; it stops after one complete message.
type Parser struct {
	cfg   ParserConfig
	hooks ParserHooks

	state parseState
	next  parseState // target of stLineLF
	err   error

	offset    int64
	headBytes int

	methodBuf  [maxMethodLen]byte
	methodLen  int
	method     Method
	urlLen     int
	versionBuf [maxVersionLen]byte
	versionLen int
	major      int
	minor      int

	nameBuf  []byte
	known    knownHeader
	valueBuf []byte

	contentLength int64
	chunked       bool
	connClose     bool
	connKeepAlive bool

	remaining int64
	bodyRead  int64
	chunkSize int64
}

// NewParser creates a parser delivering events to hooks.
func NewParser(hooks ParserHooks, cfg ParserConfig) *Parser {
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = DefaultParserConfig().MaxHeaderBytes
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultParserConfig().MaxBodyBytes
	}
	p := &Parser{
		cfg:      cfg,
		hooks:    hooks,
		nameBuf:  make([]byte, 0, maxKnownNameLen),
		valueBuf: make([]byte, 0, 64),
	}
	p.Reset()
	return p
}

// Reset prepares the parser for the next message.
func (p *Parser) Reset() {
	p.state = stMethod
	p.err = nil
	p.offset = 0
	p.headBytes = 0
	p.methodLen = 0
	p.urlLen = 0
	p.versionLen = 0
	p.major, p.minor = 0, 0
	p.nameBuf = p.nameBuf[:0]
	p.known = hdrOther
	p.valueBuf = p.valueBuf[:0]
	p.contentLength = -1
	p.chunked = false
	p.connClose = false
	p.connKeepAlive = false
	p.remaining = 0
	p.bodyRead = 0
	p.chunkSize = 0
}

// Method returns the method of the request line. Valid once the URL has started.
func (p *Parser) Method() Method { return p.method }

// Version returns the HTTP version of the request line.
func (p *Parser) Version() (major, minor int) { return p.major, p.minor }

// Done reports whether a complete message has been parsed.
func (p *Parser) Done() bool { return p.state == stDone }

// ShouldKeepAlive reports whether the client allows the connection to be
// reused after this message.
func (p *Parser) ShouldKeepAlive() bool {
	if p.major == 1 && p.minor >= 1 {
		return !p.connClose
	}
	return p.connKeepAlive && !p.connClose
}

// Execute feeds data to the parser and returns how many bytes were consumed.
// Parsing stops right after the message-complete event; bytes past that
// point are left unconsumed.
func (p *Parser) Execute(data []byte) (int, error) {
	switch p.state {
	case stError:
		return 0, p.err
	case stDone:
		return 0, nil
	}

	mark := -1
	switch p.state {
	case stURL, stHeaderField, stHeaderValue:
		mark = 0
	}

	for i := 0; i < len(data); i++ {
		c := data[i]

		if p.state < stBody {
			p.headBytes++
			if p.headBytes > p.cfg.MaxHeaderBytes {
				return i, p.fail(i, ErrHeaderTooLarge)
			}
		}

		switch p.state {
		case stMethod:
			if p.methodLen == 0 && (c == '\r' || c == '\n') {
				continue
			}
			if c == ' ' {
				m, ok := ParseMethod(p.methodBuf[:p.methodLen])
				if !ok {
					return i, p.fail(i, ErrInvalidMethod)
				}
				p.method = m
				p.state = stURL
				mark = i + 1
				continue
			}
			if p.methodLen == maxMethodLen || !httpguts.IsTokenRune(rune(c)) {
				return i, p.fail(i, ErrInvalidMethod)
			}
			p.methodBuf[p.methodLen] = c
			p.methodLen++

		case stURL:
			if c == ' ' {
				if err := p.emitURL(data, mark, i); err != nil {
					return i, p.fail(i, err)
				}
				if p.urlLen == 0 {
					return i, p.fail(i, ErrInvalidURL)
				}
				mark = -1
				p.state = stVersion
				continue
			}
			if c < 0x21 || c == 0x7f {
				return i, p.fail(i, ErrInvalidURL)
			}

		case stVersion:
			if c == '\r' || c == '\n' {
				if err := p.parseVersion(); err != nil {
					return i, p.fail(i, err)
				}
				p.lineEnd(c, stHeaderStart)
				continue
			}
			if p.versionLen == maxVersionLen {
				return i, p.fail(i, ErrInvalidVersion)
			}
			p.versionBuf[p.versionLen] = c
			p.versionLen++

		case stLineLF:
			if c != '\n' {
				return i, p.fail(i, ErrInvalidHeader)
			}
			p.state = p.next

		case stHeaderStart:
			switch {
			case c == '\r':
				p.state = stHeadersAlmostDone
			case c == '\n':
				if err := p.headersComplete(); err != nil {
					return i, p.fail(i, err)
				}
				if p.state == stDone {
					return i + 1, nil
				}
			case httpguts.IsTokenRune(rune(c)):
				p.nameBuf = p.nameBuf[:0]
				p.appendName(c)
				p.state = stHeaderField
				mark = i
			default:
				return i, p.fail(i, ErrInvalidHeader)
			}

		case stHeaderField:
			if c == ':' {
				if err := p.emit(p.hooks.OnHeaderField, data, mark, i); err != nil {
					return i, p.fail(i, err)
				}
				mark = -1
				p.known = classifyHeader(p.nameBuf)
				p.valueBuf = p.valueBuf[:0]
				p.state = stHeaderValueStart
				continue
			}
			if !httpguts.IsTokenRune(rune(c)) {
				return i, p.fail(i, ErrInvalidHeader)
			}
			p.appendName(c)

		case stHeaderValueStart:
			switch {
			case c == ' ' || c == '\t':
			case c == '\r' || c == '\n':
				if err := p.endValue(nil); err != nil {
					return i, p.fail(i, err)
				}
				p.lineEnd(c, stHeaderStart)
			case !isValueByte(c):
				return i, p.fail(i, ErrInvalidHeader)
			default:
				if err := p.appendValue(c); err != nil {
					return i, p.fail(i, err)
				}
				p.state = stHeaderValue
				mark = i
			}

		case stHeaderValue:
			if c == '\r' || c == '\n' {
				if err := p.endValue(data[mark:i]); err != nil {
					return i, p.fail(i, err)
				}
				mark = -1
				p.lineEnd(c, stHeaderStart)
				continue
			}
			if !isValueByte(c) {
				return i, p.fail(i, ErrInvalidHeader)
			}
			if err := p.appendValue(c); err != nil {
				return i, p.fail(i, err)
			}

		case stHeadersAlmostDone:
			if c != '\n' {
				return i, p.fail(i, ErrInvalidHeader)
			}
			if err := p.headersComplete(); err != nil {
				return i, p.fail(i, err)
			}
			if p.state == stDone {
				return i + 1, nil
			}

		case stBody:
			n := int64(len(data) - i)
			if n > p.remaining {
				n = p.remaining
			}
			if err := p.body(data[i : i+int(n)]); err != nil {
				return i, p.fail(i, err)
			}
			p.remaining -= n
			i += int(n) - 1
			if p.remaining == 0 {
				if err := p.complete(); err != nil {
					return i + 1, p.fail(i, err)
				}
				return i + 1, nil
			}

		case stChunkSize:
			switch {
			case c == '\r' || c == '\n':
				if p.chunkSize < 0 {
					return i, p.fail(i, ErrInvalidChunk)
				}
				p.afterChunkSize(c)
			case c == ';':
				p.state = stChunkExt
			default:
				v := unhex(c)
				if v < 0 {
					return i, p.fail(i, ErrInvalidChunk)
				}
				if p.chunkSize < 0 {
					p.chunkSize = 0
				}
				if p.chunkSize > (p.cfg.MaxBodyBytes-p.bodyRead)>>4 {
					return i, p.fail(i, ErrBodyTooLarge)
				}
				p.chunkSize = p.chunkSize<<4 | int64(v)
			}

		case stChunkExt:
			if c == '\r' || c == '\n' {
				if p.chunkSize < 0 {
					return i, p.fail(i, ErrInvalidChunk)
				}
				p.afterChunkSize(c)
			}

		case stChunkSizeLF:
			if c != '\n' {
				return i, p.fail(i, ErrInvalidChunk)
			}
			p.startChunk()

		case stChunkData:
			n := int64(len(data) - i)
			if n > p.remaining {
				n = p.remaining
			}
			if err := p.body(data[i : i+int(n)]); err != nil {
				return i, p.fail(i, err)
			}
			p.remaining -= n
			i += int(n) - 1
			if p.remaining == 0 {
				p.state = stChunkDataCR
			}

		case stChunkDataCR:
			switch c {
			case '\r':
				p.state = stChunkDataLF
			case '\n':
				p.chunkSize = -1
				p.state = stChunkSize
			default:
				return i, p.fail(i, ErrInvalidChunk)
			}

		case stChunkDataLF:
			if c != '\n' {
				return i, p.fail(i, ErrInvalidChunk)
			}
			p.chunkSize = -1
			p.state = stChunkSize

		case stTrailerStart:
			switch c {
			case '\r':
				p.state = stTrailerLF
			case '\n':
				if err := p.complete(); err != nil {
					return i + 1, p.fail(i, err)
				}
				return i + 1, nil
			default:
				p.state = stTrailerLine
			}

		case stTrailerLine:
			if c == '\n' {
				p.state = stTrailerStart
			}

		case stTrailerLF:
			if c != '\n' {
				return i, p.fail(i, ErrInvalidChunk)
			}
			if err := p.complete(); err != nil {
				return i + 1, p.fail(i, err)
			}
			return i + 1, nil
		}
	}

	if mark >= 0 {
		var err error
		switch p.state {
		case stURL:
			err = p.emitURL(data, mark, len(data))
		case stHeaderField:
			err = p.emit(p.hooks.OnHeaderField, data, mark, len(data))
		case stHeaderValue:
			err = p.emit(p.hooks.OnHeaderValue, data, mark, len(data))
		}
		if err != nil {
			return len(data), p.fail(len(data), err)
		}
	}
	p.offset += int64(len(data))
	return len(data), nil
}

func (p *Parser) fail(i int, err error) error {
	var perr *ParseError
	if !errors.As(err, &perr) {
		perr = &ParseError{Offset: p.offset + int64(i), Err: err}
	}
	p.state = stError
	p.err = perr
	return perr
}

func (p *Parser) lineEnd(c byte, next parseState) {
	if c == '\r' {
		p.state = stLineLF
		p.next = next
		return
	}
	p.state = next
}

func (p *Parser) emit(hook func([]byte) error, data []byte, from, to int) error {
	if from < 0 || to <= from {
		return nil
	}
	return hook(data[from:to])
}

func (p *Parser) emitURL(data []byte, from, to int) error {
	if from < 0 || to <= from {
		return nil
	}
	p.urlLen += to - from
	return p.hooks.OnURL(data[from:to])
}

func (p *Parser) parseVersion() error {
	v := p.versionBuf[:p.versionLen]
	if len(v) != len("HTTP/1.1") || string(v[:5]) != "HTTP/" || v[6] != '.' {
		return ErrInvalidVersion
	}
	if v[5] < '0' || v[5] > '9' || v[7] < '0' || v[7] > '9' {
		return ErrInvalidVersion
	}
	p.major = int(v[5] - '0')
	p.minor = int(v[7] - '0')
	if p.major != 1 {
		return ErrInvalidVersion
	}
	return nil
}

func (p *Parser) appendName(c byte) {
	if len(p.nameBuf) < maxKnownNameLen {
		p.nameBuf = append(p.nameBuf, lower(c))
		return
	}
	// Longer than any header we interpret.
	p.nameBuf = append(p.nameBuf[:0], '-')
}

func (p *Parser) appendValue(c byte) error {
	if p.known == hdrOther {
		return nil
	}
	if len(p.valueBuf) == maxKnownValueLen {
		return ErrInvalidHeader
	}
	p.valueBuf = append(p.valueBuf, c)
	return nil
}

// endValue delivers the last piece of a header value. Every header gets at
// least one value event, even when the value is empty.
func (p *Parser) endValue(piece []byte) error {
	if err := p.hooks.OnHeaderValue(piece); err != nil {
		return err
	}
	if p.known == hdrOther {
		return nil
	}
	value := strings.TrimSpace(string(p.valueBuf))
	if !httpguts.ValidHeaderFieldValue(value) {
		return ErrInvalidHeader
	}
	switch p.known {
	case hdrContentLength:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return ErrInvalidContentLength
		}
		if p.contentLength >= 0 && p.contentLength != n {
			return ErrInvalidContentLength
		}
		p.contentLength = n
	case hdrTransferEncoding:
		if !httpguts.HeaderValuesContainsToken([]string{value}, "chunked") {
			return ErrInvalidHeader
		}
		p.chunked = true
	case hdrConnection:
		if httpguts.HeaderValuesContainsToken([]string{value}, "close") {
			p.connClose = true
		}
		if httpguts.HeaderValuesContainsToken([]string{value}, "keep-alive") {
			p.connKeepAlive = true
		}
	}
	return nil
}

func (p *Parser) headersComplete() error {
	if p.chunked && p.contentLength >= 0 {
		return ErrInvalidContentLength
	}
	if err := p.hooks.OnHeadersComplete(); err != nil {
		return err
	}
	switch {
	case p.chunked:
		p.chunkSize = -1
		p.state = stChunkSize
	case p.contentLength > p.cfg.MaxBodyBytes:
		return ErrBodyTooLarge
	case p.contentLength > 0:
		p.remaining = p.contentLength
		p.state = stBody
	default:
		return p.complete()
	}
	return nil
}

func (p *Parser) afterChunkSize(c byte) {
	if c == '\r' {
		p.state = stChunkSizeLF
		return
	}
	p.startChunk()
}

func (p *Parser) startChunk() {
	if p.chunkSize == 0 {
		p.state = stTrailerStart
		return
	}
	p.remaining = p.chunkSize
	p.state = stChunkData
}

func (p *Parser) body(b []byte) error {
	p.bodyRead += int64(len(b))
	if p.bodyRead > p.cfg.MaxBodyBytes {
		return ErrBodyTooLarge
	}
	return p.hooks.OnBody(b)
}

func (p *Parser) complete() error {
	p.state = stDone
	return p.hooks.OnMessageComplete()
}

func classifyHeader(name []byte) knownHeader {
	switch string(name) {
	case "content-length":
		return hdrContentLength
	case "transfer-encoding":
		return hdrTransferEncoding
	case "connection":
		return hdrConnection
	}
	return hdrOther
}

func isValueByte(c byte) bool {
	return c == '\t' || (c >= 0x20 && c != 0x7f)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
