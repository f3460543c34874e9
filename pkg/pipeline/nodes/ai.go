package nodes

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeAIText pipeline.NodeType = "ai.text"

const defaultAIModel = "claude-sonnet-4-5"

// Completer performs a blocking text generation. The ai.text node depends
// on this interface so tests can substitute a fake.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// AnthropicCompleter backs Completer with the Anthropic Messages API.
type AnthropicCompleter struct {
	sdk anthropicsdk.Client
}

// NewAnthropicCompleter creates a completer reading credentials from the
// environment (ANTHROPIC_API_KEY).
func NewAnthropicCompleter() *AnthropicCompleter {
	return &AnthropicCompleter{sdk: anthropicsdk.NewClient(option.WithAPIKey(""))}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	msg, err := c.sdk.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// TextNode generates a sequence of text samples from a prompt via an LLM.
// Generation happens at execution time, one request per pass; the model
// returns one sample per line.
type TextNode struct {
	pipeline.Base
	completer Completer
	prompt    string
	count     int
	model     string
}

// NewAIText creates an AI text generation node. A nil completer defaults
// to the Anthropic API.
func NewAIText(prompt string, completer Completer) *TextNode {
	if completer == nil {
		completer = NewAnthropicCompleter()
	}
	n := &TextNode{
		Base:      pipeline.NewBase(TypeAIText, "AI Text"),
		completer: completer,
		prompt:    prompt,
		count:     10,
		model:     defaultAIModel,
	}
	n.AddOptionalInput("count", pipeline.TypeNumber)
	n.AddOutput("samples", pipeline.TypeSequence)
	n.SetConfig("prompt", prompt)
	n.SetConfig("count", n.count)
	n.SetConfig("model", n.model)
	return n
}

// NewAITextFromConfig restores an ai.text node from persisted
// configuration.
func NewAITextFromConfig(cfg map[string]any, completer Completer) (*TextNode, error) {
	prompt := configString(cfg, "prompt", "")
	if prompt == "" {
		return nil, &pipeline.ConfigError{Type: TypeAIText, Reason: "prompt is required"}
	}
	n := NewAIText(prompt, completer)
	n.SetCount(configInt(cfg, "count", 10))
	n.SetModel(configString(cfg, "model", defaultAIModel))
	return n, nil
}

// SetCount sets how many samples to request.
func (n *TextNode) SetCount(count int) {
	if count < 1 {
		count = 1
	}
	n.count = count
	n.SetConfig("count", count)
}

// SetModel selects the generation model.
func (n *TextNode) SetModel(model string) {
	n.model = model
	n.SetConfig("model", model)
}

// CanExecute reports true: the prompt is configuration, not an input.
func (n *TextNode) CanExecute() bool { return true }

func (n *TextNode) Process(ctx context.Context) bool {
	count := n.count
	if f, ok := toNumber(n.InputValue("count")); ok && int(f) > 0 {
		count = int(f)
	}

	prompt := fmt.Sprintf(
		"Generate exactly %d distinct examples of the following, one per line, with no numbering or commentary:\n\n%s",
		count, n.prompt)

	text, err := n.completer.Complete(ctx, n.model, prompt, 4096)
	if err != nil {
		return false
	}

	var samples []any
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		samples = append(samples, line)
		if len(samples) == count {
			break
		}
	}
	if len(samples) == 0 {
		return false
	}
	n.SetOutputValue("samples", samples)
	return true
}
