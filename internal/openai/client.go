package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/brolyroly007/contentforge/internal/llm"
	"github.com/brolyroly007/contentforge/internal/logging"
)

// Name is the provider key.
const Name = "openai"

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Models lists well-known chat models.
var Models = []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"}

// Client is a minimal HTTP wrapper around the chat completions API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *log.Logger
}

// NewClient wires together the dependencies for API access.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.Logger
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type chunkResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) payload(req llm.Request, stream bool) chatRequest {
	var msgs []message
	if req.SystemPrompt != "" {
		msgs = append(msgs, message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})
	return chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// post sends the request and returns the response when the status is 2xx.
func (c *Client) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Printf("openai: sending %d messages to model %s (stream=%v)", len(body.Messages), body.Model, body.Stream)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.ErrorLog("openai request error: %v", err)
		return nil, llm.NetworkError(Name, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		logging.ErrorLog("openai API error: %d - %s", resp.StatusCode, string(data))
		return nil, llm.HTTPError(Name, resp, data)
	}
	return resp, nil
}

// Generate executes a single completion request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	resp, err := c.post(ctx, c.payload(req, false))
	if err != nil {
		return llm.Result{}, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logging.ErrorLog("openai response parse error: %v", err)
		return llm.Result{}, llm.MalformedError(Name, err)
	}
	if len(out.Choices) == 0 {
		return llm.Result{}, llm.NewProviderError(Name, llm.ErrorTypeMalformed, "", "response contained no choices")
	}

	tokens := 0
	if out.Usage != nil {
		tokens = out.Usage.TotalTokens
	}
	choice := out.Choices[0]
	logging.DevLog("openai: received %d chars, %d tokens", len(choice.Message.Content), tokens)
	return llm.NewResult(Name, c.model, choice.Message.Content, tokens, choice.FinishReason), nil
}

// Stream reads server-sent events until the [DONE] sentinel.
func (c *Client) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.post(ctx, c.payload(req, true))
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		// A reply is complete once [DONE] or a finish_reason arrives.
		finished := false
		scanner := llm.NewLineScanner(resp.Body)
		for scanner.Scan() {
			data, ok := llm.SSEData(scanner.Bytes())
			if !ok {
				continue
			}
			if string(data) == llm.SSEDone {
				return
			}
			var chunk chunkResponse
			if err := json.Unmarshal(data, &chunk); err != nil {
				yield("", llm.MalformedError(Name, err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if chunk.Choices[0].FinishReason != nil {
				finished = true
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", llm.NetworkError(Name, err))
			return
		}
		if !finished {
			yield("", llm.NewProviderError(Name, llm.ErrorTypeMalformed, "", "stream ended without [DONE] or finish_reason"))
		}
	}
}

// Available is true when an API key is configured.
func (c *Client) Available(context.Context) bool {
	return c.apiKey != ""
}

var _ llm.Provider = (*Client)(nil)
