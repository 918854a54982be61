// Package draft produces counselor-facing reply drafts from an external
// text-generation provider.
//
// Jobs run off the relay's event loop. Results are handed back through a
// callback and never touch room state directly.
package draft

//go:generate mockgen -destination=mocks/mock_generator.go -package=mocks github.com/dkeye/Counsel/internal/app/draft Generator

import (
	"context"
	"errors"
	"fmt"
)

type TurnRole string

const (
	TurnSystem    TurnRole = "system"
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// Turn is one prompt message handed to the provider.
type Turn struct {
	Role    TurnRole
	Content string
}

// Generator is the only capability the pipeline needs from a provider.
type Generator interface {
	Generate(ctx context.Context, turns []Turn) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, turns []Turn) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, turns []Turn) (string, error) {
	return f(ctx, turns)
}

var ErrEmptyOutput = errors.New("draft: empty generation output")

// GenerationError wraps any provider failure, timeout or unusable output.
// Its detail is for logs only.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("draft: %s generation failed: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
