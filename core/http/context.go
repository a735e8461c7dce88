package http

// Ownership says who releases a Response once it has been handed to the core.
type Ownership uint8

const (
	// Owning: the core releases the response after serializing it.
	Owning Ownership = iota
	// Borrowing: the handler keeps the response; the core never releases it.
	Borrowing
)

func (o Ownership) String() string {
	if o == Borrowing {
		return "borrowing"
	}
	return "owning"
}

// Context is the per-connection handle passed to route handlers.
type Context interface {
	// ID identifies the connection in logs.
	ID() string

	// SetResponse attaches the response to send for the current request.
	SetResponse(resp *Response, ownership Ownership)

	// SetResponseOwnership changes the ownership of the attached response.
	SetResponseOwnership(ownership Ownership)

	// Response returns the attached response, or nil.
	Response() *Response
}

// HandlerFunc serves one request. Any state a handler needs travels in its
// closure. Returning an error closes the connection without a reply.
type HandlerFunc func(req *Request, ctx Context) error
