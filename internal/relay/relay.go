// Package relay converts the generation backend's lazy sequence of text
// increments into ordered outbound frames. The client-side counterpart lives
// in pkg/client.
package relay

import (
	"io"
	"strings"

	"github.com/studychat/backend/internal/driver"
)

// Sink receives the frames a relay emits. The terminal final frame is the
// caller's responsibility because it carries rendered content the relay does
// not produce.
type Sink interface {
	Partial(text string)
	Interrupted(reason string)
}

// CancelCheck reports whether cancellation has been requested for the
// in-flight generation. It is consulted before every frame emit.
type CancelCheck func() bool

// Run drains the stream into the sink. It returns the accumulated text:
// exactly the concatenation of the partial frames emitted before the end of
// the stream, an upstream failure, or an observed cancellation.
//
// A non-nil error means the stream failed mid-iteration and an interrupted
// frame was already sent; the caller must not emit a final frame. Otherwise
// the caller emits exactly one final frame from the returned text.
func Run(stream driver.Stream, sink Sink, cancelled CancelCheck) (string, error) {
	var buf strings.Builder
	for {
		if cancelled != nil && cancelled() {
			return buf.String(), nil
		}

		inc, err := stream.Next()
		if err == io.EOF {
			return buf.String(), nil
		}
		if err != nil {
			sink.Interrupted(err.Error())
			return buf.String(), err
		}

		// Cancellation observed after the increment arrived but before it
		// was emitted: the increment is dropped, keeping the terminal
		// content equal to what the client has seen.
		if cancelled != nil && cancelled() {
			return buf.String(), nil
		}

		sink.Partial(inc)
		buf.WriteString(inc)
	}
}
