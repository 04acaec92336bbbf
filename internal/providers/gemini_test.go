package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiChatSuccess(t *testing.T) {
	var payload map[string]any
	var path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "{\"patient_data\": {\"age\": \"45\"}}"}]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 120, "candidatesTokenCount": 30, "totalTokenCount": 150},
			"modelVersion": "gemini-2.5-flash-lite"
		}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "PROMPT\nTEXT:\n45 year old male"}},
		Temperature:    Float(0),
		ResponseFormat: &ResponseFormat{Type: "json_object", MIMEType: "application/json"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if !strings.HasSuffix(path, "models/gemini-2.5-flash-lite:generateContent") {
		t.Errorf("unexpected path: %s", path)
	}
	if !result.Success {
		t.Error("expected success result")
	}
	if result.Content != `{"patient_data": {"age": "45"}}` {
		t.Errorf("Content = %q", result.Content)
	}
	if result.PromptTokens != 120 || result.CompletionTokens != 30 || result.TotalTokens != 150 {
		t.Errorf("tokens = %d/%d/%d, want 120/30/150", result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	}
	if result.Provider != GeminiClientName {
		t.Errorf("Provider = %q", result.Provider)
	}
	if result.RequestID == "" {
		t.Error("expected generated request ID")
	}

	genCfg, _ := payload["generationConfig"].(map[string]any)
	if genCfg == nil {
		t.Fatalf("missing generationConfig in payload: %v", payload)
	}
	if got, ok := genCfg["temperature"].(float64); !ok || got != 0 {
		t.Errorf("temperature = %v, want explicit 0", genCfg["temperature"])
	}
	if got, _ := genCfg["responseMimeType"].(string); got != "application/json" {
		t.Errorf("responseMimeType = %q, want application/json", got)
	}

	contents, _ := payload["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents = %v, want a single user message", payload["contents"])
	}
	first, _ := contents[0].(map[string]any)
	if first["role"] != "user" {
		t.Errorf("role = %v, want user", first["role"])
	}
}

func TestGeminiChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:  "bad-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if result == nil || result.Success {
		t.Fatal("expected failed result alongside error")
	}
	if result.ErrorType != "api_error" {
		t.Errorf("ErrorType = %q, want api_error", result.ErrorType)
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), GeminiConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestGeminiBuildRequest(t *testing.T) {
	c := &GeminiClient{defaultModel: GeminiDefaultModel}

	contents, cfg := c.buildRequest(&ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "q"},
			{Role: "assistant", Content: "a"},
		},
		MaxTokens:      256,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})

	if len(contents) != 2 {
		t.Fatalf("len(contents) = %d, want 2", len(contents))
	}
	if contents[1].Role != "model" {
		t.Errorf("assistant role = %q, want model", contents[1].Role)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "be terse" {
		t.Error("system message should become the system instruction")
	}
	if cfg.MaxOutputTokens != 256 {
		t.Errorf("MaxOutputTokens = %d, want 256", cfg.MaxOutputTokens)
	}
	if cfg.ResponseMIMEType != "application/json" {
		t.Errorf("ResponseMIMEType = %q, want default application/json", cfg.ResponseMIMEType)
	}
	if cfg.Temperature != nil {
		t.Error("Temperature should be unset when the request leaves it nil")
	}
}
