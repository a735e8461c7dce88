package core

import "github.com/libreidp/libreidp/core/http"

// Observer is notified of connection and request outcomes. Calls are made
// from the event loop goroutine.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	RequestServed(method http.Method, status http.StatusCode)
	ParseFailed()
	HandlerFailed()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()                         {}
func (nopObserver) ConnectionClosed()                         {}
func (nopObserver) RequestServed(http.Method, http.StatusCode) {}
func (nopObserver) ParseFailed()                              {}
func (nopObserver) HandlerFailed()                            {}
