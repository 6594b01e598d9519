// Package together streams completions from Together's OpenAI-compatible
// completions endpoint, re-segmenting the incremental token stream into
// line-based output events.
package together

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrClientGone signals that the local consumer went away mid-stream; the
// upstream connection is released without reading further.
var ErrClientGone = errors.New("client disconnected")

// UpstreamError carries a non-2xx response from the completion endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion api error: status %d: %s", e.StatusCode, e.Body)
}

// GenerationParams are the fixed sampling parameters sent with every request.
type GenerationParams struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	params  GenerationParams
	client  *http.Client
}

func NewClient(apiKey, model string, params GenerationParams, timeout time.Duration) *Client {
	return &Client{
		baseURL: "https://api.together.xyz",
		apiKey:  apiKey,
		model:   model,
		params:  params,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// streamState tracks the lifecycle of one streaming exchange.
type streamState int

const (
	stateConnecting streamState = iota
	stateStreaming
	stateDraining
)

// tokenFragment is one parsed SSE payload from the completions stream.
type tokenFragment struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// StreamLines sends the prompt with stream=true and invokes emit once per
// complete output line, in order. The inbound token stream is buffered and
// flushed at newline boundaries; the final partial line is flushed when the
// upstream finishes.
//
// ctx cancellation is polled at each inbound line: on cancel the remaining
// buffer is flushed to emit best-effort and ErrClientGone is returned, without
// consuming further network data. A fragment that fails to parse is logged and
// skipped. The response body is closed on every exit path.
func (c *Client) StreamLines(ctx context.Context, prompt string, emit func(line string) error) error {
	state := stateConnecting

	reqBody := map[string]interface{}{
		"model":       c.model,
		"prompt":      prompt,
		"stream":      true,
		"max_tokens":  c.params.MaxTokens,
		"temperature": c.params.Temperature,
		"top_p":       c.params.TopP,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	state = stateStreaming
	var buf lineBuffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for state == stateStreaming && scanner.Scan() {
		// Cancellation is cooperative: checked once per inbound line, so
		// latency is bounded by one line of upstream output.
		if ctx.Err() != nil {
			if rest := buf.Flush(); rest != "" {
				_ = emit(rest)
			}
			return fmt.Errorf("%w: %v", ErrClientGone, ctx.Err())
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			state = stateDraining
			break
		}

		var frag tokenFragment
		if err := json.Unmarshal([]byte(payload), &frag); err != nil {
			slog.WarnContext(ctx, "skipping malformed stream fragment", "error", err)
			continue
		}
		if len(frag.Choices) == 0 {
			continue
		}

		for _, out := range buf.Push(frag.Choices[0].Text) {
			if err := emit(out); err != nil {
				return err
			}
		}
	}

	if state == stateStreaming {
		if err := scanner.Err(); err != nil {
			// Cancellation may surface through the transport before the
			// per-line poll sees it.
			if ctx.Err() != nil {
				if rest := buf.Flush(); rest != "" {
					_ = emit(rest)
				}
				return fmt.Errorf("%w: %v", ErrClientGone, ctx.Err())
			}
			return fmt.Errorf("completion stream failed: %w", err)
		}
		// Natural EOF without a [DONE] marker still drains.
		state = stateDraining
	}

	if rest := buf.Flush(); rest != "" {
		if err := emit(rest); err != nil {
			return err
		}
	}
	return nil
}
