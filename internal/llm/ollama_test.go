package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(Response{Response: "  Sure, here is a draft.  "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", 5*time.Second)
	out, err := c.Generate(context.Background(), "write a reply")
	require.NoError(t, err)
	assert.Equal(t, "Sure, here is a draft.", out)
	assert.Equal(t, "ollama", c.Name())
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", 5*time.Second)
	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}

func TestOllamaGenerateContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(srv.URL, "test-model", time.Second)
	_, err := c.Generate(ctx, "prompt")
	assert.Error(t, err)
}

func TestNewProviderFromConfig(t *testing.T) {
	p, err := NewProviderFromConfig("ollama", "http://localhost:11434/api/generate", "m", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewProviderFromConfig("", "http://localhost:11434/api/generate", "m", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestDetectBedrockFamily(t *testing.T) {
	assert.Equal(t, "anthropic", detectBedrockFamily("anthropic.claude-sonnet"))
	assert.Equal(t, "anthropic", detectBedrockFamily("us.anthropic.claude-haiku"))
	assert.Equal(t, "titan", detectBedrockFamily("amazon.titan-text"))
	assert.Equal(t, "", detectBedrockFamily("mistral.small"))
}
