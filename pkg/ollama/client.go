// Package ollama is a minimal client for a local Ollama server: streaming
// chat completions over HTTP plus model discovery through the ollama CLI.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// DefaultHost is where a stock Ollama install listens
const DefaultHost = "http://localhost:11434"

const listModelsTimeout = 10 * time.Second

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TransportError wraps any failure talking to the model server, whether
// over HTTP or through the ollama CLI.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ollama %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to one Ollama server
type Client struct {
	host       string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the server at host. An empty host means
// DefaultHost. No timeout is set on the HTTP client: chat responses stream
// for as long as the model keeps producing, and cancellation is the
// caller's context's job.
func NewClient(host string, options ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	c := &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Chat issues one streaming chat request and invokes fn once per content
// delta, in the order the server produced them. It returns after the
// server reports the stream done, the body ends, or ctx is cancelled.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, fn func(delta string)) error {
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return &TransportError{Op: "chat", Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "chat", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{Op: "chat", Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return &TransportError{Op: "chat", Err: fmt.Errorf("decode stream line: %w", err)}
		}
		if chunk.Error != "" {
			return &TransportError{Op: "chat", Err: fmt.Errorf("server error: %s", chunk.Error)}
		}
		if chunk.Message.Content != "" {
			fn(chunk.Message.Content)
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		// surface a cancellation as the context error, not a read error
		if ctx.Err() != nil {
			return &TransportError{Op: "chat", Err: ctx.Err()}
		}
		return &TransportError{Op: "chat", Err: err}
	}
	return nil
}

// ListModels returns the names of locally installed models by running
// `ollama list`: header line skipped, first whitespace-separated token of
// each remaining line.
func ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listModelsTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ollama", "list")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, &TransportError{Op: "list", Err: fmt.Errorf("%s", detail)}
	}

	return parseModelList(stdout.String()), nil
}

// parseModelList extracts model names from `ollama list` output
func parseModelList(output string) []string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return nil
	}

	var names []string
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	return names
}
