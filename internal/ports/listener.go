package ports

// Listener is a transport that feeds inputs into the analysis service
type Listener interface {
	// Start begins serving; it returns once the listener is accepting
	Start() error

	// Stop shuts the listener down
	Stop() error
}
