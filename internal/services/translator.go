package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lingopane/lingopane-backend/internal/logger"
)

// Error codes carried on block-level translation failures. These surface to
// the frontend in place on the failed block; they never abort the rest of
// the document.
const (
	ErrCodeProviderAuth    = "PROVIDER_AUTH"
	ErrCodeProviderTimeout = "PROVIDER_TIMEOUT"
	ErrCodeProviderHTTP    = "PROVIDER_HTTP"
	ErrCodeProviderStream  = "PROVIDER_STREAM"
	ErrCodeCanceled        = "CANCELED"
)

// TranslateRequest translates one block's text. APIKey is the caller's own
// provider credential, passed through per request.
type TranslateRequest struct {
	APIKey     string
	Profile    ModelProfile
	Text       string
	SourceLang string
	TargetLang string
}

// TranslatorClient streams one block translation from an OpenAI-compatible
// chat completions endpoint. onChunk receives incremental text in provider
// delivery order; the return value is the full accumulated text.
type TranslatorClient interface {
	StreamTranslate(ctx context.Context, req TranslateRequest, onChunk func(chunk string)) (string, error)
}

// BlockError is a block-scoped provider failure with a taxonomy code.
type BlockError struct {
	Code    string
	Message string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type translatorClient struct {
	log        *logger.Logger
	httpClient *http.Client
}

func NewTranslatorClient(log *logger.Logger) TranslatorClient {
	timeoutSec := 120
	if v := os.Getenv("TRANSLATOR_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	return &translatorClient{
		log:        log.With("service", "TranslatorClient"),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

const defaultSystemPrompt = "You are a professional translator. Translate the user's content from %s to %s. Preserve inline markup, code, and formatting exactly. Output only the translation."

func (c *translatorClient) StreamTranslate(ctx context.Context, req TranslateRequest, onChunk func(chunk string)) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", &BlockError{Code: ErrCodeProviderAuth, Message: "missing provider api key"}
	}

	system := req.Profile.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = fmt.Sprintf(defaultSystemPrompt, langOrAuto(req.SourceLang), req.TargetLang)
	}
	payload := chatCompletionRequest{
		Model: req.Profile.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Text},
		},
		Temperature: req.Profile.Temperature,
		Stream:      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(req.Profile.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", &BlockError{Code: ErrCodeCanceled, Message: ctx.Err().Error()}
		}
		return "", &BlockError{Code: ErrCodeProviderTimeout, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &BlockError{Code: ErrCodeProviderAuth, Message: fmt.Sprintf("provider rejected credentials (%d)", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &BlockError{Code: ErrCodeProviderHTTP, Message: fmt.Sprintf("provider http %d: %s", resp.StatusCode, truncate(string(raw), 256))}
	}

	return c.consumeStream(ctx, resp.Body, onChunk)
}

// consumeStream reads SSE "data:" lines until [DONE] or EOF. Per-block
// ordering is the transport's delivery order; chunks are forwarded as they
// arrive.
func (c *translatorClient) consumeStream(ctx context.Context, body io.Reader, onChunk func(chunk string)) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return full.String(), &BlockError{Code: ErrCodeCanceled, Message: ctx.Err().Error()}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return full.String(), nil
		}
		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.log.Debug("Skipping unparseable stream line", "error", err)
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				full.WriteString(choice.Delta.Content)
				if onChunk != nil {
					onChunk(choice.Delta.Content)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return full.String(), &BlockError{Code: ErrCodeCanceled, Message: ctx.Err().Error()}
		}
		return full.String(), &BlockError{Code: ErrCodeProviderStream, Message: err.Error()}
	}
	return full.String(), nil
}

func langOrAuto(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return "the source language"
	}
	return lang
}
