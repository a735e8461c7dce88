package http

import (
	"strings"

	"github.com/libreidp/libreidp/core/vector"
)

// Header is a single name/value pair. Several headers may share a name.
type Header struct {
	Name  string
	Value string
}

// Headers is an insertion-ordered header list. The zero value is ready to use.
type Headers struct {
	list *vector.Vector[Header]
}

func (h *Headers) vec() *vector.Vector[Header] {
	if h.list == nil {
		h.list = vector.New[Header](nil)
	}
	return h.list
}

// Add appends a header without looking for an existing one.
func (h *Headers) Add(name, value string) {
	*h.vec().Reserve() = Header{Name: name, Value: value}
}

// Get returns the value of the first header whose name matches,
// compared case-insensitively by content.
func (h *Headers) Get(name string) (string, bool) {
	if i := h.index(name); i >= 0 {
		hdr, _ := h.list.Get(i)
		return hdr.Value, true
	}
	return "", false
}

// Set replaces the value of the first matching header, or appends one.
func (h *Headers) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		hdr, _ := h.list.Get(i)
		hdr.Value = value
		return
	}
	h.Add(name, value)
}

func (h *Headers) index(name string) int {
	if h.list == nil {
		return -1
	}
	it := h.list.Iter()
	for i := 0; ; i++ {
		hdr, ok := it.Next()
		if !ok {
			return -1
		}
		if strings.EqualFold(hdr.Name, name) {
			return i
		}
	}
}

// All returns a copy of the headers in insertion order.
func (h *Headers) All() []Header {
	out := make([]Header, 0, h.Len())
	for i := 0; i < h.Len(); i++ {
		hdr, _ := h.list.Get(i)
		out = append(out, *hdr)
	}
	return out
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	if h.list == nil {
		return 0
	}
	return h.list.Len()
}

// At returns the i-th header in insertion order.
func (h *Headers) At(i int) (Header, bool) {
	if h.list == nil {
		return Header{}, false
	}
	hdr, ok := h.list.Get(i)
	if !ok {
		return Header{}, false
	}
	return *hdr, true
}

// last returns the most recently added header, if any.
func (h *Headers) last() *Header {
	if h.list == nil {
		return nil
	}
	hdr, _ := h.list.Get(h.list.Len() - 1)
	return hdr
}

// Reset drops every header but keeps the storage.
func (h *Headers) Reset() {
	if h.list != nil {
		h.list.Clear()
	}
}

// wireLength is the number of bytes AppendTo writes.
func (h *Headers) wireLength() int {
	n := 0
	for i := 0; i < h.Len(); i++ {
		hdr, _ := h.list.Get(i)
		n += len(hdr.Name) + len(": ") + len(hdr.Value) + len("\r\n")
	}
	return n
}

// AppendTo writes each header as "Name: Value\r\n" in insertion order.
func (h *Headers) AppendTo(dst []byte) []byte {
	for i := 0; i < h.Len(); i++ {
		hdr, _ := h.list.Get(i)
		dst = append(dst, hdr.Name...)
		dst = append(dst, ':', ' ')
		dst = append(dst, hdr.Value...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}
