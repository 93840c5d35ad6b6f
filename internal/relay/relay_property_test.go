package relay

import (
	"io"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any stream and any cancellation point, the accumulated text returned
// for the terminal frame equals exactly the concatenation of the partial
// frames that were emitted. Nothing the client saw is lost, nothing it never
// saw appears.
func TestCancelBufferEqualityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	increment := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 30
	})

	properties.Property("terminal text equals emitted partials", prop.ForAll(
		func(increments []string, cancelAfter int) bool {
			stream := &scriptedStream{increments: increments, final: io.EOF}
			sink := &recordingSink{}

			text, err := Run(stream, sink, func() bool {
				return len(sink.partials) >= cancelAfter
			})
			if err != nil {
				return false
			}
			if len(sink.interrupted) != 0 {
				return false
			}
			return text == strings.Join(sink.partials, "")
		},
		gen.SliceOf(increment),
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}
