package ollama

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
const Name = "ollama"

// DefaultBaseURL is where a local Ollama listens by default.
const DefaultBaseURL = "http://localhost:11434"

// ProbeTimeout bounds the liveness check against /api/tags.
const ProbeTimeout = 2 * time.Second

// Models lists commonly pulled models.
var Models = []string{"llama3.2", "llama3.1", "mistral", "codellama", "phi3", "gemma2"}

// Client talks to a local Ollama server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *log.Logger
}

// NewClient wires together the dependencies for API access.
func NewClient(baseURL, model string, timeout time.Duration, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.Logger
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		logger:     logger,
	}
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

// BaseURL is the normalized server root.
func (c *Client) BaseURL() string { return c.baseURL }

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	System  string  `json:"system,omitempty"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (c *Client) payload(req llm.Request, stream bool) generateRequest {
	return generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: stream,
		Options: options{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
}

func (c *Client) post(ctx context.Context, body generateRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Printf("ollama: generate on model %s at %s (stream=%v)", body.Model, c.baseURL, body.Stream)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.ErrorLog("ollama request error: %v", err)
		return nil, llm.NetworkError(Name, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		logging.ErrorLog("ollama API error: %d - %s", resp.StatusCode, string(data))
		return nil, llm.HTTPError(Name, resp, data)
	}
	return resp, nil
}

// Generate executes a single non-streaming generate request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	resp, err := c.post(ctx, c.payload(req, false))
	if err != nil {
		return llm.Result{}, err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logging.ErrorLog("ollama response parse error: %v", err)
		return llm.Result{}, llm.MalformedError(Name, err)
	}
	if out.Error != "" {
		return llm.Result{}, llm.NewProviderError(Name, llm.ErrorTypeUnknown, "", out.Error)
	}
	return llm.NewResult(Name, c.model, out.Response, out.EvalCount+out.PromptEvalCount, out.DoneReason), nil
}

// Stream reads newline-delimited JSON objects until one carries done=true.
func (c *Client) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.post(ctx, c.payload(req, true))
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		scanner := llm.NewLineScanner(resp.Body)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk generateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				yield("", llm.MalformedError(Name, err))
				return
			}
			if chunk.Error != "" {
				yield("", llm.NewProviderError(Name, llm.ErrorTypeUnknown, "", chunk.Error))
				return
			}
			if chunk.Response != "" {
				if !yield(chunk.Response, nil) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", llm.NetworkError(Name, err))
			return
		}
		yield("", llm.NewProviderError(Name, llm.ErrorTypeMalformed, "", "stream ended without done flag"))
	}
}

// Available probes GET /api/tags with a short timeout. Any failure reports false.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.DevLog("ollama: probe %s failed: %v", c.baseURL, err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

var _ llm.Provider = (*Client)(nil)
