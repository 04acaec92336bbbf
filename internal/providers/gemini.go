package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiClientName   = "gemini"
	GeminiDefaultModel = "gemini-2.5-flash-lite"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	BaseURL      string       // Optional (tests)
	HTTPClient   *http.Client // Optional (tests)
}

// GeminiClient implements LLMClient on the Gemini API backend.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	baseURL      string
	client       *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = GeminiDefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		baseURL:      cfg.BaseURL,
		client:       client,
	}, nil
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiClientName
}

// Model returns the configured default model.
func (c *GeminiClient) Model() string {
	return c.defaultModel
}

// Chat sends a GenerateContent request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		Provider:  GeminiClientName,
		ModelUsed: model,
		RequestID: requestID,
	}

	contents, genCfg := c.buildRequest(req)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		err = mapGeminiError(err)
		return failedResult(result, start, errorType(err), err), err
	}

	result.Success = true
	result.Content = resp.Text()
	if resp.ModelVersion != "" {
		result.ModelUsed = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
		result.ReasoningTokens = int(u.ThoughtsTokenCount)
		result.TotalTokens = int(u.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	return result, nil
}

// buildRequest converts a ChatRequest into Gemini contents and generation config.
// System messages become the system instruction; assistant turns use the "model" role.
func (c *GeminiClient) buildRequest(req *ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	genCfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if rf := req.ResponseFormat; rf != nil {
		genCfg.ResponseMIMEType = rf.MIMEType
		if genCfg.ResponseMIMEType == "" {
			genCfg.ResponseMIMEType = "application/json"
		}
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	return contents, genCfg
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "Gemini", StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{Provider: "Gemini", StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return err
}

var _ LLMClient = (*GeminiClient)(nil)
