package singleinstance

// Single-instance ownership and run-once delegation over loopback TCP.
//
// Protocol, one request per connection:
//
//	client: PING\n                      server: PONG\n
//	client: <MODE>[ key=value...]\n     server: SUCCESS\n<payload> | ERROR\n<message>
//
// MODE is STDOUT (payload is the compressed image) or CLIPBOARD (payload is
// a one-line summary; the resident writes the image to its clipboard).

import (
	"context"
)

// Server owns the TCP endpoint and answers run-once requests.
type Server interface {
	// Start listens on the first port of the configured range and accepts client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends success followed by payload, which may be empty.
	RespondSuccess(payload []byte) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request represents a single run-once client request. Zero Scale and empty
// Format mean "use the resident's current settings".
type Request struct {
	OutputToStdout bool
	Scale          float64
	Format         string
}

// Client attempts to delegate run-once invocation to a resident server.
type Client interface {
	// TryRunOnce finds a resident, sends req and waits for its response.
	// If no resident is found, returns delegated=false, err=nil.
	TryRunOnce(ctx context.Context, req Request) (delegated bool, payload []byte, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTCPServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTCPClient() }
