package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Closer is a background worker the application stops on shutdown.
type Closer interface {
	Close() error
}

// CloserFunc adapts a plain stop function to Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error {
	return f()
}
