package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lingopane/lingopane-backend/internal/logger"
	"github.com/lingopane/lingopane-backend/internal/types"
)

// ExtractionClient talks to the readability extraction collaborator. It
// normalizes the collaborator's JSON into ordered ContentBlocks with stable
// ids assigned here, at extraction time.
type ExtractionClient interface {
	Extract(ctx context.Context, sourceURL string) (*ExtractedDocument, error)
}

type ExtractedDocument struct {
	Title      string
	SourceLang string
	Blocks     []*types.ContentBlock
}

type extractionClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewExtractionClient(log *logger.Logger) (ExtractionClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("EXTRACTION_BASE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing EXTRACTION_BASE_URL")
	}

	timeoutSec := 60
	if v := os.Getenv("EXTRACTION_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	maxRetries := 3
	if v := os.Getenv("EXTRACTION_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &extractionClient{
		log:        log.With("service", "ExtractionClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type extractionHTTPError struct {
	StatusCode int
	Body       string
}

func (e *extractionHTTPError) Error() string {
	return fmt.Sprintf("extraction http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	if code >= 500 && code <= 599 {
		return true
	}
	return false
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var httpErr *extractionHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// Wire shape of the readability collaborator's response.
type extractionResponse struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Blocks   []struct {
		Type     string         `json:"type"`
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	} `json:"blocks"`
}

func (c *extractionClient) Extract(ctx context.Context, sourceURL string) (*ExtractedDocument, error) {
	reqBody, err := json.Marshal(map[string]string{"url": sourceURL})
	if err != nil {
		return nil, err
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitterSleep(backoff)):
			}
			backoff *= 2
		}
		resp, err := c.doExtract(ctx, reqBody)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryableErr(err) {
			return nil, err
		}
		c.log.Warn("Extraction attempt failed, retrying", "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("extraction failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *extractionClient) doExtract(ctx context.Context, reqBody []byte) (*ExtractedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &extractionHTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var parsed extractionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("bad extraction payload: %w", err)
	}

	doc := &ExtractedDocument{
		Title:      strings.TrimSpace(parsed.Title),
		SourceLang: strings.TrimSpace(parsed.Language),
	}
	for i, raw := range parsed.Blocks {
		blockType := types.BlockType(strings.ToLower(strings.TrimSpace(raw.Type)))
		if !types.ValidBlockType(blockType) {
			c.log.Debug("Skipping block of unsupported type", "type", raw.Type, "position", i)
			continue
		}
		text := raw.Text
		if strings.TrimSpace(text) == "" && blockType != types.BlockTypeImage {
			continue
		}
		var meta datatypes.JSONMap
		if len(raw.Metadata) > 0 {
			meta = datatypes.JSONMap(raw.Metadata)
		}
		doc.Blocks = append(doc.Blocks, &types.ContentBlock{
			ID:       uuid.New(),
			Position: len(doc.Blocks),
			Type:     blockType,
			Text:     text,
			Metadata: meta,
		})
	}
	return doc, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
