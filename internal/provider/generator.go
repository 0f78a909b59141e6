package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultGenerationTimeout bounds a single generation call.
const DefaultGenerationTimeout = 120 * time.Second

// GenerationError reports a failed generation: timeout, transport failure,
// or a response the backend could not decode.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %q failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces a completion for a single prompt. It streams from the
// underlying chat model and concatenates the fragments.
type Generator struct {
	model   model.BaseChatModel
	name    string
	timeout time.Duration
}

// NewGenerator wraps m. A non-positive timeout selects
// DefaultGenerationTimeout.
func NewGenerator(m model.BaseChatModel, modelName string, timeout time.Duration) (*Generator, error) {
	if m == nil {
		return nil, fmt.Errorf("provider: chat model must not be nil")
	}
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Generator{model: m, name: modelName, timeout: timeout}, nil
}

// Model returns the model identifier used in errors and logs.
func (g *Generator) Model() string { return g.name }

// Generate sends prompt as a single user message and returns the full
// response text. Any failure is returned as a *GenerationError.
// Globally registered callback handlers (tracing) observe the call.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      g.name,
		Component: components.ComponentOfChatModel,
	})

	sr, err := g.model.Stream(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", g.fail(ctx, err)
	}
	defer sr.Close()

	var b strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", g.fail(ctx, err)
		}
		if msg != nil {
			b.WriteString(msg.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", g.fail(ctx, err)
	}
	return b.String(), nil
}

func (g *Generator) fail(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", g.timeout, err)
	}
	return &GenerationError{Model: g.name, Err: err}
}
