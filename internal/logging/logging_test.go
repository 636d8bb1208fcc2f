package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestWriter_JSONFormatPassesThrough(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := writer(FormatJSON, &buf)
	l := zerolog.New(w)
	l.Info().Str("pipeline", "chat").Msg("done")

	got := buf.String()
	if got == "" || got[0] != '{' {
		t.Fatalf("json output = %q, want a JSON object line", got)
	}
}

func TestWriter_DefaultIsConsole(t *testing.T) {
	t.Parallel()

	if _, ok := writer("", &bytes.Buffer{}).(zerolog.ConsoleWriter); !ok {
		t.Fatalf("default writer is not a console writer")
	}
}
