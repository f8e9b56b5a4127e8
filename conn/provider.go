package conn

import "sync/atomic"

// Provider supplies the connection a query builder or row type runs on.
type Provider interface {
	Conn() *Conn
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() *Conn

// Conn implements Provider.
func (f ProviderFunc) Conn() *Conn { return f() }

var defaultConn atomic.Pointer[Conn]

// SetDefault registers c as the process-wide default connection. It is
// meant for the application's outer edge, e.g. a main package wiring a
// connection into code that takes a Provider.
func SetDefault(c *Conn) {
	defaultConn.Store(c)
}

// Default returns the process-wide default connection, or nil.
func Default() *Conn {
	return defaultConn.Load()
}

// DefaultProvider returns a Provider resolving the default connection each
// time it is asked.
func DefaultProvider() Provider {
	return ProviderFunc(Default)
}
