package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/llmsender/internal/adapters/llm"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

func TestOpenAI_Summarize(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "the summary"}},
			},
		})
	}))
	defer srv.Close()

	inst, err := llm.NewOpenAI(map[string]any{
		"base_url": srv.URL,
		"api_key":  "sk-test",
		"model":    "gpt-4o-mini",
	})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	summary, err := s.Summarize(context.Background(), "Summarize:", "raw content")
	require.NoError(t, err)
	assert.Equal(t, "the summary", summary)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotPayload["model"])

	messages := gotPayload["messages"].([]any)
	first := messages[0].(map[string]any)
	assert.Equal(t, "Summarize:\n\nraw content", first["content"])
}

func TestOpenAI_ToolSpecsForwarded(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	inst, err := llm.NewOpenAI(map[string]any{
		"base_url": srv.URL,
		"api_key":  "sk-test",
		"tools": []map[string]any{
			{"type": "function", "function": map[string]any{"name": "lookup"}},
		},
	})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	_, err = s.Summarize(context.Background(), "p", "c")
	require.NoError(t, err)
	require.Contains(t, gotPayload, "tools")
	tools := gotPayload["tools"].([]any)
	require.Len(t, tools, 1)
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	inst, err := llm.NewOpenAI(map[string]any{"base_url": srv.URL, "api_key": "sk-test"})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	_, err = s.Summarize(context.Background(), "p", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	inst, err := llm.NewOpenAI(map[string]any{"base_url": srv.URL, "api_key": "sk-test"})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	_, err = s.Summarize(context.Background(), "p", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAnthropic_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "key-test", r.Header.Get("x-api-key"))
		require.NotEmpty(t, r.Header.Get("anthropic-version"))
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "claude summary"},
			},
		})
	}))
	defer srv.Close()

	inst, err := llm.NewAnthropic(map[string]any{"base_url": srv.URL, "api_key": "key-test"})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	summary, err := s.Summarize(context.Background(), "p", "c")
	require.NoError(t, err)
	assert.Equal(t, "claude summary", summary)
}

func TestGemini_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "key-test", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "gemini summary"}}}},
			},
		})
	}))
	defer srv.Close()

	inst, err := llm.NewGemini(map[string]any{"base_url": srv.URL, "api_key": "key-test"})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	summary, err := s.Summarize(context.Background(), "p", "c")
	require.NoError(t, err)
	assert.Equal(t, "gemini summary", summary)
}

func TestOllama_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, false, payload["stream"])
		json.NewEncoder(w).Encode(map[string]any{"response": "local summary"})
	}))
	defer srv.Close()

	inst, err := llm.NewOllama(map[string]any{"base_url": srv.URL})
	require.NoError(t, err)
	s := inst.(ports.Summarizer)

	summary, err := s.Summarize(context.Background(), "p", "c")
	require.NoError(t, err)
	assert.Equal(t, "local summary", summary)
}
