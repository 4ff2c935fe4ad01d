// Package events defines the lifecycle events published on the eventbus.
package events

import "time"

// HTTPStart is emitted when the server accepts a request.
type HTTPStart struct {
	Method string
	Path   string
}

// HTTPFinish is emitted when the server has written a response.
type HTTPFinish struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}
