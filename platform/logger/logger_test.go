package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWithContext_CopiesRequestAndLeadIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, LeadIDKey, "lead-9")
	log.WithContext(ctx).Info("lead received")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Fatalf("expected request_id in output, got %s", out)
	}
	if !strings.Contains(out, `"lead_id":"lead-9"`) {
		t.Fatalf("expected lead_id in output, got %s", out)
	}
}

func TestDispatchOutcome_FailureLogsWarn(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.DispatchOutcome("provider", "5511987654321", "failed", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected WARN level, got %s", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("expected error attribute, got %s", out)
	}
}
