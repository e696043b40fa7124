package semantic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/config"
)

func TestOpenAIEmbedder(t *testing.T) {
	t.Run("embeds through an openai compatible endpoint", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"test-embed"}`)
		}))
		defer ts.Close()

		embedder := NewOpenAIEmbedder(config.EmbeddingConfig{
			BaseURL:   ts.URL + "/v1",
			APIKey:    "test-key",
			Model:     "test-embed",
			Dimension: 2,
		})
		require.Equal(t, 2, embedder.Dimension())

		vec, err := embedder.Embed(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.25}, vec)
	})

	t.Run("rejects responses with the wrong dimension", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0.125]}],"model":"test-embed"}`)
		}))
		defer ts.Close()

		embedder := NewOpenAIEmbedder(config.EmbeddingConfig{
			BaseURL:   ts.URL + "/v1",
			APIKey:    "test-key",
			Model:     "test-embed",
			Dimension: 2,
		})
		_, err := embedder.Embed(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension")
	})

	t.Run("propagates backend errors", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`, http.StatusNotFound)
		}))
		defer ts.Close()

		embedder := NewOpenAIEmbedder(config.EmbeddingConfig{
			BaseURL: ts.URL + "/v1",
			APIKey:  "test-key",
			Model:   "missing",
		})
		_, err := embedder.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic for equal text", func(t *testing.T) {
		embedder := NewHashEmbedder(64)
		a, err := embedder.Embed(ctx, "the dam held")
		require.NoError(t, err)
		b, err := embedder.Embed(ctx, "the dam held")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("distinct texts produce distinct vectors", func(t *testing.T) {
		embedder := NewHashEmbedder(64)
		a, err := embedder.Embed(ctx, "the dam held")
		require.NoError(t, err)
		b, err := embedder.Embed(ctx, "the dam burst")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("vectors are unit length", func(t *testing.T) {
		embedder := NewHashEmbedder(32)
		vec, err := embedder.Embed(ctx, "unit norm check")
		require.NoError(t, err)
		require.Len(t, vec, 32)

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 0.001)
	})

	t.Run("rejects non-positive dimensions", func(t *testing.T) {
		embedder := NewHashEmbedder(0)
		_, err := embedder.Embed(ctx, "anything")
		assert.Error(t, err)
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors score one", func(t *testing.T) {
		v := []float32{0.3, -0.5, 0.8}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	})

	t.Run("opposite vectors score minus one", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	})

	t.Run("mismatched or zero vectors score zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
		assert.Zero(t, CosineSimilarity(nil, nil))
		assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})

	t.Run("hash embeddings of distinct texts are nearly orthogonal", func(t *testing.T) {
		embedder := NewHashEmbedder(256)
		a, err := embedder.Embed(context.Background(), "the reservoir is calm today")
		require.NoError(t, err)
		b, err := embedder.Embed(context.Background(), "repair the east turbine housing")
		require.NoError(t, err)
		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 0.5)
	})
}
