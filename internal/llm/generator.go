// Package llm provides text generators backed by large language models.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration marks failures that originate in the model call itself
// (transport, quota, safety block, empty answer).
var ErrGeneration = errors.New("generation failed")

// Generator turns a prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
	Close() error
}
