package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestComponentTagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	l := Component("engine")
	l.Info().Msg("session restored")

	line := buf.String()
	if !strings.Contains(line, `"component":"engine"`) {
		t.Fatalf("log line %q missing component field", line)
	}
	if !strings.Contains(line, "session restored") {
		t.Fatalf("log line %q missing message", line)
	}
}
