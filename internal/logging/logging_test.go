package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
)

func TestHandlerVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger(NewHandler(&buf, 3, false))

	logger.Info("Deposit confirmed", "amount", 42)
	logger.Debug("Proof generated")

	out := buf.String()
	if !strings.Contains(out, "Deposit confirmed") || !strings.Contains(out, "amount=42") {
		t.Fatalf("info record missing: %q", out)
	}
	if strings.Contains(out, "Proof generated") {
		t.Fatalf("debug record emitted at verbosity 3: %q", out)
	}
}

func TestHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger(NewHandler(&buf, 4, true))
	logger.Debug("Bundle executed", "slot", 7)

	out := buf.String()
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"slot":7`) {
		t.Fatalf("unexpected json record: %q", out)
	}
}
