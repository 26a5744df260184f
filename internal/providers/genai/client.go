// Package genai is the boundary to the hosted generative-image model. The
// orchestrator treats it as an opaque edit(image, instructions) -> image
// collaborator; every failure it reports is terminal for that request.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client is a lightweight facade over the Gemini generateContent API, scoped
// to multimodal image editing: image parts in, one image part out.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// EditRequest carries one image-editing call: the instruction text, the
// image inputs in model order (base image first, then any references), and
// an optional pinned seed for repeatable output.
type EditRequest struct {
	Instruction string
	Images      []domain.ImageBuffer
	Seed        *int64
	RequestID   string
}

// BlockedError reports that the request was refused for a policy reason
// before any candidate was produced.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request was blocked: %s", e.Reason)
}

// AbnormalStopError reports that generation stopped for an unexpected
// reason (safety, recitation, token limits).
type AbnormalStopError struct {
	Reason string
}

func (e *AbnormalStopError) Error() string {
	return fmt.Sprintf("generation stopped unexpectedly: %s", e.Reason)
}

// NoImageError reports that the model answered without an image part. Text
// carries the model's explanation when it gave one.
type NoImageError struct {
	Text string
}

func (e *NoImageError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("model returned no image: %s", e.Text)
	}
	return "model returned no image"
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Seed *int64 `json:"seed,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason        string `json:"blockReason,omitempty"`
	BlockReasonMessage string `json:"blockReasonMessage,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with sensible timeouts will be
// created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("genai: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// EditImage performs one generateContent call and returns the edited image.
// Failures come back as one of the typed terminal errors (BlockedError,
// AbnormalStopError, NoImageError) or a transport error; the client never
// retries on the caller's behalf.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (domain.ImageBuffer, error) {
	if len(req.Images) == 0 {
		return domain.ImageBuffer{}, fmt.Errorf("genai: at least one image input is required")
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return domain.ImageBuffer{}, fmt.Errorf("genai: instruction is required")
	}

	parts := make([]geminiPart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: img.MIME,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	parts = append(parts, geminiPart{Text: req.Instruction})

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.Seed != nil {
		payload.GenerationConfig = &geminiGenerationConfig{Seed: req.Seed}
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model))
	if err := c.invokeGemini(ctx, path, payload, &response); err != nil {
		return domain.ImageBuffer{}, err
	}

	if fb := response.PromptFeedback; fb != nil && fb.BlockReason != "" {
		reason := fb.BlockReason
		if fb.BlockReasonMessage != "" {
			reason = fmt.Sprintf("%s (%s)", fb.BlockReason, fb.BlockReasonMessage)
		}
		return domain.ImageBuffer{}, &BlockedError{Reason: reason}
	}

	if len(response.Candidates) == 0 {
		return domain.ImageBuffer{}, &NoImageError{}
	}
	candidate := response.Candidates[0]

	var textFallback string
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return domain.ImageBuffer{}, fmt.Errorf("genai: decode inline data: %w", err)
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.model).
				Int("bytes", len(data)).
				Msg("genai: received edited image")
			return domain.ImageBuffer{Data: data, MIME: mime}, nil
		}
		if part.Text != "" && textFallback == "" {
			textFallback = part.Text
		}
	}

	if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
		return domain.ImageBuffer{}, &AbnormalStopError{Reason: candidate.FinishReason}
	}
	return domain.ImageBuffer{}, &NoImageError{Text: textFallback}
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
