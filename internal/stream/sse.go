package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DoneEvent is the name of the final event of every stream.
const DoneEvent = "done"

// Event is one parsed server-sent event.
type Event struct {
	Name string
	Data string
}

// EventWriter writes server-sent events to an HTTP response.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
	delay   time.Duration
}

// NewEventWriter sets the event-stream headers on w and returns a writer that
// waits delay between chunks.
func NewEventWriter(w http.ResponseWriter, delay time.Duration) *EventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	f, _ := w.(http.Flusher)
	return &EventWriter{w: w, flusher: f, delay: delay}
}

// WriteChunks sends each chunk as a data event, then the done event.
func (e *EventWriter) WriteChunks(ctx context.Context, chunks []string) error {
	if err := Pace(ctx, chunks, e.delay, func(c string) error {
		return e.WriteEvent("", c)
	}); err != nil {
		return err
	}
	return e.WriteEvent(DoneEvent, "[DONE]")
}

// WriteEvent writes one event and flushes it.
func (e *EventWriter) WriteEvent(name, data string) error {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// errStop ends ReadEvents without an error.
var errStop = errors.New("stop")

// ReadEvents parses an event stream from r and calls fn for each event until
// the done event, EOF, or an error from fn.
func ReadEvents(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var ev Event
	var data []string
	hasData := false
	dispatch := func() error {
		if !hasData && ev.Name == "" {
			return nil
		}
		ev.Data = strings.Join(data, "\n")
		cur := ev
		ev, data, hasData = Event{}, nil, false
		if err := fn(cur); err != nil {
			return err
		}
		if cur.Name == DoneEvent {
			return errStop
		}
		return nil
	}
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				if errors.Is(err, errStop) {
					return nil
				}
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			v := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(v, " "))
			hasData = true
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := dispatch(); err != nil && !errors.Is(err, errStop) {
		return err
	}
	return nil
}
