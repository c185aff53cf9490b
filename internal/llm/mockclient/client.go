package mockclient

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/brolyroly007/contentforge/internal/llm"
)

// EnvVar switches the provider factory to this client when set to "1".
const EnvVar = "CONTENTFORGE_MOCK_LLM"

// Client is a deterministic llm.Provider used for tests and CI.
type Client struct {
	prefix string
	name   string
	model  string
}

// New returns a mock client that echoes the prompt under the given provider
// name and model.
func New(name, model string) *Client {
	if model == "" {
		model = "mock-model"
	}
	return &Client{prefix: "MOCK", name: name, model: model}
}

func (c *Client) Name() string  { return c.name }
func (c *Client) Model() string { return c.model }

func (c *Client) reply(req llm.Request) string {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return fmt.Sprintf("%s RESPONSE", c.prefix)
	}
	return fmt.Sprintf("%s RESPONSE: %s", c.prefix, prompt)
}

// Generate satisfies llm.Provider.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	if err := ctx.Err(); err != nil {
		return llm.Result{}, err
	}
	return llm.NewResult(c.name, c.model, c.reply(req), 49, ""), nil
}

// Stream yields the Generate reply word by word.
func (c *Client) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		words := strings.SplitAfter(c.reply(req), " ")
		for _, w := range words {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if w == "" {
				continue
			}
			if !yield(w, nil) {
				return
			}
		}
	}
}

// Available is always true.
func (c *Client) Available(context.Context) bool { return true }

var _ llm.Provider = (*Client)(nil)
