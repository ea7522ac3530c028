// Package llm is a small client for OpenAI-compatible chat completion APIs
// (Groq by default), with optional server-sent-event streaming.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sqlerrors "sqlchat/cli/internal/errors"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"
)

// Config configures a Client.
type Config struct {
	APIKey      string
	Model       string
	Streaming   bool
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	Messages []Message
	Stop     []string
}

// Usage reports token accounting when the server provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the assembled completion.
type Response struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Completer is what the agent needs from a language model.
type Completer interface {
	Complete(ctx context.Context, req Request, onDelta func(string)) (Response, error)
}

// APIError is a non-2xx response from the endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completion failed status=%d body=%s", e.Status, e.Body)
}

// Client talks to /chat/completions.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	streaming   bool
	temperature float64
	client      *http.Client
}

// New validates cfg and builds a client. An empty API key is an LLMInit error.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, sqlerrors.New(sqlerrors.LLMInit, "API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, sqlerrors.New(sqlerrors.LLMInit, "base URL must start with http:// or https://")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		streaming:   cfg.Streaming,
		temperature: cfg.Temperature,
		client:      hc,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type chatPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Complete sends the request. With streaming enabled onDelta receives each
// text fragment as it arrives; it may be nil.
func (c *Client) Complete(ctx context.Context, req Request, onDelta func(string)) (Response, error) {
	body, err := json.Marshal(chatPayload{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: c.temperature,
		Stop:        req.Stop,
		Stream:      c.streaming,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if c.streaming && strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readStream(resp.Body, onDelta)
	}
	return readJSON(resp.Body, onDelta)
}

func readJSON(r io.Reader, onDelta func(string)) (Response, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return Response{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("empty chat completion choices")
	}
	text := parsed.Choices[0].Message.Content
	if onDelta != nil && text != "" {
		onDelta(text)
	}
	return Response{Text: text, FinishReason: parsed.Choices[0].FinishReason, Usage: parsed.Usage}, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	XGroq *struct {
		Usage *Usage `json:"usage"`
	} `json:"x_groq"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type doneErr struct{}

func (doneErr) Error() string { return "done" }

// readStream collects "data:" blocks until a blank line, stopping at [DONE].
func readStream(r io.Reader, onDelta func(string)) (Response, error) {
	var (
		full    strings.Builder
		out     Response
		dataBuf strings.Builder
	)

	flush := func() error {
		raw := strings.TrimSpace(dataBuf.String())
		dataBuf.Reset()
		if raw == "" {
			return nil
		}
		if raw == "[DONE]" {
			return doneErr{}
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			return fmt.Errorf("invalid stream json: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("stream error: %s", chunk.Error.Message)
		}
		for _, ch := range chunk.Choices {
			if d := ch.Delta.Content; d != "" {
				full.WriteString(d)
				if onDelta != nil {
					onDelta(d)
				}
			}
			if ch.FinishReason != nil {
				out.FinishReason = *ch.FinishReason
			}
		}
		switch {
		case chunk.Usage != nil:
			out.Usage = *chunk.Usage
		case chunk.XGroq != nil && chunk.XGroq.Usage != nil:
			out.Usage = *chunk.XGroq.Usage
		}
		return nil
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			trim := strings.TrimRight(line, "\r\n")
			if trim == "" {
				if ferr := flush(); ferr != nil {
					if _, ok := ferr.(doneErr); ok {
						break
					}
					return Response{}, ferr
				}
			} else if strings.HasPrefix(trim, "data:") {
				if dataBuf.Len() > 0 {
					dataBuf.WriteString("\n")
				}
				dataBuf.WriteString(strings.TrimSpace(strings.TrimPrefix(trim, "data:")))
			}
		}
		if err != nil {
			if err != io.EOF {
				return Response{}, fmt.Errorf("read stream: %w", err)
			}
			if ferr := flush(); ferr != nil {
				if _, ok := ferr.(doneErr); !ok {
					return Response{}, ferr
				}
			}
			break
		}
	}

	out.Text = full.String()
	return out, nil
}
