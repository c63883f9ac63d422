package ports

// Transport defines the interface for serving analyses over a protocol
type Transport interface {
	// Start starts the transport in the background
	Start() error

	// Stop stops the transport
	Stop() error
}
