package stream

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/localllm/ollama-gateway/internal/domain"
	"github.com/localllm/ollama-gateway/internal/envelope"
)

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestEmitOrderingAndSentinel(t *testing.T) {
	fragments := []string{"Hi ", "there ", "friend!"}

	events := collect(t, NewEmitter(0).Emit(context.Background(), "msg_1", "phi4:latest", fragments))

	if len(events) != len(fragments)+1 {
		t.Fatalf("got %d events, want %d deltas + sentinel", len(events), len(fragments))
	}

	for i, fragment := range fragments {
		ev := events[i]
		if ev.Delta == nil {
			t.Fatalf("event %d is not a delta", i)
		}
		if ev.Delta.Delta.Content != fragment {
			t.Errorf("delta %d content = %q, want %q", i, ev.Delta.Delta.Content, fragment)
		}

		wantReason := i == len(fragments)-1
		if wantReason {
			if ev.Delta.StopReason == nil || *ev.Delta.StopReason != envelope.StopReasonEndTurn {
				t.Errorf("final delta stop reason = %v, want end_turn", ev.Delta.StopReason)
			}
		} else if ev.Delta.StopReason != nil {
			t.Errorf("delta %d carries stop reason %q, want null", i, *ev.Delta.StopReason)
		}
	}

	last := events[len(events)-1]
	if !last.Sentinel {
		t.Errorf("final event is not the sentinel")
	}
}

func TestEmitEmptyFragmentsStillEmitsSentinel(t *testing.T) {
	events := collect(t, NewEmitter(0).Emit(context.Background(), "msg_1", "phi4:latest", nil))

	if len(events) != 1 {
		t.Fatalf("got %d events, want sentinel only", len(events))
	}
	if !events[0].Sentinel {
		t.Errorf("sole event is not the sentinel")
	}
}

func TestEmitCancellationStopsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fragments := make([]string, 100)
	for i := range fragments {
		fragments[i] = "word "
	}

	events := NewEmitter(10 * time.Millisecond).Emit(ctx, "msg_1", "phi4:latest", fragments)

	// Read one event, then walk away.
	<-events
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("emitter did not stop after cancellation")
		}
	}
}

func TestEmitErrorSequence(t *testing.T) {
	apiErr := domain.ErrBackendUnavailable("connection refused")

	events := collect(t, NewEmitter(0).EmitError(context.Background(), apiErr))

	if len(events) != 2 {
		t.Fatalf("got %d events, want error + sentinel", len(events))
	}
	if events[0].Error == nil {
		t.Fatalf("first event is not an error")
	}
	if events[0].Error.Error.Type != "backend_unavailable" {
		t.Errorf("error type = %q", events[0].Error.Error.Type)
	}
	if !events[1].Sentinel {
		t.Errorf("second event is not the sentinel")
	}
}

func TestWriteEvent(t *testing.T) {
	t.Run("delta", func(t *testing.T) {
		var buf bytes.Buffer
		delta := envelope.Partial("msg_1", "phi4:latest", "Hi ", true, false)

		if err := WriteEvent(&buf, Event{Delta: &delta}); err != nil {
			t.Fatalf("WriteEvent() error = %v", err)
		}

		out := buf.String()
		if !strings.HasPrefix(out, "data: {") {
			t.Errorf("frame = %q, want data: prefix", out)
		}
		if !strings.HasSuffix(out, "\n\n") {
			t.Errorf("frame %q does not end with blank line", out)
		}
	})

	t.Run("sentinel", func(t *testing.T) {
		var buf bytes.Buffer

		if err := WriteEvent(&buf, Event{Sentinel: true}); err != nil {
			t.Fatalf("WriteEvent() error = %v", err)
		}

		if got := buf.String(); got != "data: [DONE]\n\n" {
			t.Errorf("frame = %q, want data: [DONE] line", got)
		}
	})

	t.Run("empty event is rejected", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteEvent(&buf, Event{}); err == nil {
			t.Errorf("WriteEvent() accepted an empty event")
		}
	})
}

func TestEmitPacingDoesNotReorder(t *testing.T) {
	fragments := []string{"a ", "b ", "c"}

	events := collect(t, NewEmitter(time.Millisecond).Emit(context.Background(), "msg_1", "m", fragments))

	var got []string
	for _, ev := range events {
		if ev.Delta != nil {
			got = append(got, ev.Delta.Delta.Content)
		}
	}

	if strings.Join(got, "") != "a b c" {
		t.Errorf("paced deltas = %v, order broken", got)
	}
}
