package llm

import (
	"context"
	"strings"
)

// EchoGenerator answers by repeating the last user line of the prompt.
// It needs no network and is used for local development and tests.
type EchoGenerator struct{}

// NewEchoGenerator returns an EchoGenerator.
func NewEchoGenerator() *EchoGenerator {
	return &EchoGenerator{}
}

// Generate returns "You said: <query>".
func (e *EchoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "You said: " + lastUserLine(prompt), nil
}

// Model returns "echo".
func (e *EchoGenerator) Model() string { return "echo" }

// Close is a no-op.
func (e *EchoGenerator) Close() error { return nil }

func lastUserLine(prompt string) string {
	lines := strings.Split(strings.TrimRight(prompt, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if q, ok := strings.CutPrefix(lines[i], "User: "); ok {
			return strings.TrimSpace(q)
		}
	}
	return strings.TrimSpace(prompt)
}
