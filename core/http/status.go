package http

import "strconv"

// Method is a request method understood by the core.
type Method uint8

const (
	MethodGet Method = iota
	MethodPost
)

// ParseMethod maps a request-line method token to a Method.
func ParseMethod(b []byte) (Method, bool) {
	switch string(b) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	}
	return 0, false
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "Method(" + strconv.Itoa(int(m)) + ")"
	}
}

// StatusCode is an HTTP response status.
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusCreated             StatusCode = 201
	StatusNoContent           StatusCode = 204
	StatusFound               StatusCode = 302
	StatusBadRequest          StatusCode = 400
	StatusUnauthorized        StatusCode = 401
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusMethodNotAllowed    StatusCode = 405
	StatusInternalServerError StatusCode = 500
)

var reasons = map[StatusCode]string{
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusNoContent:           "No Content",
	StatusFound:               "Found",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusMethodNotAllowed:    "Method Not Allowed",
	StatusInternalServerError: "Internal Server Error",
}

// Reason returns the reason phrase for the status line. Unknown codes get "Unknown".
func (c StatusCode) Reason() string {
	if r, ok := reasons[c]; ok {
		return r
	}
	return "Unknown"
}

func (c StatusCode) String() string {
	return strconv.Itoa(int(c)) + " " + c.Reason()
}
