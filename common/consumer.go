package common

import "fmt"

// Consumer consumes messages from a topic
type Consumer interface {
	// Consume messages from the selected topic continuously.
	// It also sound like a relevant motto for the society we live in :)
	ConsumeUntilKilled()

	// Add a handler function to the consumer for a given topic name. Up to
	// concurrency tasks will be executed in parrallel
	AddHandler(topic string, handler Handler, concurrency int) error
}

// Handler abstracts the way messages are handled so that different handlers can
// easily be passed for different topics
type Handler func(message []byte) error

// HandlerFatalError is a simple wrapper type around fatal handler errors. If a fatal error
// occurred during the handling of a message, the latter won't be requeued.
type HandlerFatalError struct {
	message string
}

func (err HandlerFatalError) Error() string {
	return fmt.Sprintf("Fatal error in handler: %s", err.message)
}

// NewHandlerFatalError wraps an error into a HandlerFatalError
func NewHandlerFatalError(err error) HandlerFatalError {
	return HandlerFatalError{
		message: err.Error(),
	}
}
