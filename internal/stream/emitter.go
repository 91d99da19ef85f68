// Package stream drives simulated streaming: it turns an ordered fragment
// sequence into a paced, sentinel-terminated sequence of framed events.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/localllm/ollama-gateway/internal/domain"
	"github.com/localllm/ollama-gateway/internal/envelope"
)

// Sentinel is the reserved terminal marker. It is always the final event of a
// stream; nothing follows it.
const Sentinel = "[DONE]"

// Event is one framed unit on the outbound stream: a delta envelope, an
// in-stream error body, or the terminal sentinel.
type Event struct {
	Delta    *envelope.Delta
	Error    *envelope.ErrorBody
	Sentinel bool
}

// Emitter produces event channels for simulated streams. The per-fragment
// delay emulates generation pacing; it never alters ordering.
type Emitter struct {
	delay time.Duration
}

// NewEmitter creates an emitter pacing consecutive data events by delay.
// Zero disables pacing.
func NewEmitter(delay time.Duration) *Emitter {
	return &Emitter{delay: delay}
}

// Emit returns a finite, non-restartable event sequence: one delta per
// fragment in order, then exactly one sentinel. An empty fragment slice still
// yields the sentinel. The channel is closed by the producer.
//
// If ctx is cancelled the producer stops promptly and closes the channel
// without emitting further events; the caller is gone, so no sentinel is owed.
func (e *Emitter) Emit(ctx context.Context, id, model string, fragments []string) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)

		for i, fragment := range fragments {
			if i > 0 && !e.pace(ctx) {
				return
			}

			delta := envelope.Partial(id, model, fragment, i == 0, i == len(fragments)-1)
			if !send(ctx, out, Event{Delta: &delta}) {
				return
			}
		}

		send(ctx, out, Event{Sentinel: true})
	}()
	return out
}

// EmitError returns the failure-path sequence: exactly one error-tagged event
// followed immediately by the sentinel. No data events precede it.
func (e *Emitter) EmitError(ctx context.Context, apiErr *domain.APIError) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)

		body := envelope.Error(apiErr)
		if !send(ctx, out, Event{Error: &body}) {
			return
		}
		send(ctx, out, Event{Sentinel: true})
	}()
	return out
}

// pace waits the configured delay, yielding rather than blocking. It reports
// false when the context ended first.
func (e *Emitter) pace(ctx context.Context) bool {
	if e.delay <= 0 {
		return true
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// WriteEvent frames one event as a server-sent-event line. The caller is
// responsible for flushing between events.
func WriteEvent(w io.Writer, ev Event) error {
	if ev.Sentinel {
		_, err := fmt.Fprintf(w, "data: %s\n\n", Sentinel)
		return err
	}

	var payload any
	switch {
	case ev.Delta != nil:
		payload = ev.Delta
	case ev.Error != nil:
		payload = ev.Error
	default:
		return fmt.Errorf("empty stream event")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
