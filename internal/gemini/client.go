package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brolyroly007/contentforge/internal/llm"
	"github.com/brolyroly007/contentforge/internal/logging"
)

// Name is the provider key.
const Name = "gemini"

// DefaultBaseURL is the Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Models lists well-known Gemini models.
var Models = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// Client talks to the generateContent endpoints.
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

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// text concatenates the parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (c *Client) payload(req llm.Request) generateRequest {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	return body
}

func (c *Client) post(ctx context.Context, method string, query url.Values, body generateRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:%s", c.baseURL, url.PathEscape(c.model), method)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Printf("gemini: %s on model %s", method, c.model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.ErrorLog("gemini request error: %v", err)
		return nil, llm.NetworkError(Name, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		logging.ErrorLog("gemini API error: %d - %s", resp.StatusCode, string(data))
		return nil, llm.HTTPError(Name, resp, data)
	}
	return resp, nil
}

// Generate executes a single generateContent request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	resp, err := c.post(ctx, "generateContent", nil, c.payload(req))
	if err != nil {
		return llm.Result{}, err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logging.ErrorLog("gemini response parse error: %v", err)
		return llm.Result{}, llm.MalformedError(Name, err)
	}
	if len(out.Candidates) == 0 {
		msg := "response contained no candidates"
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			msg = "prompt blocked: " + out.PromptFeedback.BlockReason
		}
		return llm.Result{}, llm.NewProviderError(Name, llm.ErrorTypeBadRequest, "", msg)
	}

	tokens := 0
	if out.UsageMetadata != nil {
		tokens = out.UsageMetadata.TotalTokenCount
	}
	finish := strings.ToLower(out.Candidates[0].FinishReason)
	return llm.NewResult(Name, c.model, out.text(), tokens, finish), nil
}

// Stream consumes streamGenerateContent as server-sent events.
func (c *Client) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.post(ctx, "streamGenerateContent", url.Values{"alt": {"sse"}}, c.payload(req))
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		finished := false
		scanner := llm.NewLineScanner(resp.Body)
		for scanner.Scan() {
			data, ok := llm.SSEData(scanner.Bytes())
			if !ok {
				continue
			}
			var event generateResponse
			if err := json.Unmarshal(data, &event); err != nil {
				yield("", llm.MalformedError(Name, err))
				return
			}
			if text := event.text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
			if len(event.Candidates) > 0 && event.Candidates[0].FinishReason != "" {
				finished = true
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", llm.NetworkError(Name, err))
			return
		}
		if !finished {
			yield("", llm.NewProviderError(Name, llm.ErrorTypeMalformed, "", "stream ended without finishReason"))
		}
	}
}

// Available is true when an API key is configured.
func (c *Client) Available(context.Context) bool {
	return c.apiKey != ""
}

var _ llm.Provider = (*Client)(nil)
