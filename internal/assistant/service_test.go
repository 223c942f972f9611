package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"orbitus-api/internal/assistant"
	"orbitus-api/internal/config"
	"orbitus-api/internal/logger"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply  string
	err    error
	prompt string
	system string
}

func (f *fakeProvider) Available() bool { return true }

func (f *fakeProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

func TestServiceWithoutProvider(t *testing.T) {
	svc := assistant.NewService(nil, logger.Discard())

	assert.False(t, svc.Available())
	assert.Equal(t, assistant.UnavailableMessage, svc.Chat(context.Background(), "oi"))
	assert.Equal(t, assistant.UnavailableMessage, svc.Insights(context.Background()))

	// A key-less config yields a nil provider that still reports unavailable.
	provider := assistant.NewAnthropicProvider(config.AssistantConfig{})
	assert.False(t, assistant.NewService(provider, logger.Discard()).Available())
}

func TestServiceChat(t *testing.T) {
	provider := &fakeProvider{reply: "Registre uma aula."}
	svc := assistant.NewService(provider, logger.Discard())

	assert.Equal(t, assistant.EmptyMessageReply, svc.Chat(context.Background(), "   "))
	assert.Empty(t, provider.prompt)

	assert.Equal(t, "Registre uma aula.", svc.Chat(context.Background(), "  Como ganho XP? "))
	assert.Equal(t, "Como ganho XP?", provider.prompt)
	assert.Contains(t, provider.system, "Orbitus Classroom RPG")

	provider.err = errors.New("overloaded")
	assert.Equal(t, "Erro ao consultar o assistente: overloaded", svc.Chat(context.Background(), "oi"))

	provider.err, provider.reply = nil, ""
	assert.Equal(t, assistant.NoReply, svc.Chat(context.Background(), "oi"))
}

func TestServiceInsights(t *testing.T) {
	provider := &fakeProvider{reply: "Foque nos bloqueios de CSS."}
	svc := assistant.NewService(provider, logger.Discard())

	assert.Equal(t, "Foque nos bloqueios de CSS.", svc.Insights(context.Background()))

	provider.err = errors.New("timeout")
	assert.Equal(t, assistant.NoInsights, svc.Insights(context.Background()))
}

func TestAnthropicProvider(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Olá, "}, {"type": "text", "text": "professor."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`)
	}))
	defer server.Close()

	provider := assistant.NewAnthropicProvider(
		config.AssistantConfig{APIKey: "test-key", MaxTokens: 256},
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	require.True(t, provider.Available())

	reply, err := provider.Generate(context.Background(), "contexto", "oi")
	require.NoError(t, err)
	assert.Equal(t, "Olá, professor.", reply)

	assert.EqualValues(t, 256, received["max_tokens"])
	assert.Equal(t, "claude-sonnet-4-20250514", received["model"])
}

func TestHandler(t *testing.T) {
	router := chi.NewRouter()
	assistant.NewHandler(assistant.NewService(&fakeProvider{reply: "ok"}, logger.Discard()), logger.Discard()).RegisterRoutes(router)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		key    string
		want   string
	}{
		{"status", http.MethodGet, "/ai/status", "", "available", "true"},
		{"chat", http.MethodPost, "/ai/chat", `{"message":"oi"}`, "reply", "ok"},
		{"chat without body", http.MethodPost, "/ai/chat", "", "reply", assistant.EmptyMessageReply},
		{"insights", http.MethodGet, "/ai/insights", "", "insights", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, toString(resp[tt.key]))
		})
	}
}

func toString(v any) string {
	switch v := v.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return v
	}
	return ""
}
