// Package stream splits answers into small pieces and delivers them to clients
// as server-sent events.
package stream

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Chunk splits text on whitespace and regroups the words. Words are appended
// (each followed by a space) to a buffer, and the buffer is emitted, trimmed,
// as soon as its length exceeds minChars. Whatever remains is emitted last.
func Chunk(text string, minChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []string
	var buf strings.Builder
	for _, w := range words {
		buf.WriteString(w)
		buf.WriteByte(' ')
		if utf8.RuneCountInString(buf.String()) > minChars {
			chunks = append(chunks, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
	}
	if buf.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(buf.String()))
	}
	return chunks
}

// Pace calls send for every chunk, waiting delay between consecutive chunks.
// It returns ctx.Err() if the context ends first, or the first send error.
func Pace(ctx context.Context, chunks []string, delay time.Duration, send func(string) error) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := send(c); err != nil {
			return err
		}
		if delay <= 0 || i == len(chunks)-1 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(delay)
		} else {
			timer.Reset(delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
