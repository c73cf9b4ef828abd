package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL endpoint receives a request, with
// the request id already in the context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published once the response has been written. Errors counts
// the error records in the body, over every operation of a batch.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Errors   int
	Duration time.Duration
}
