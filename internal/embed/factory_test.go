package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_StaticIsCachedByDefault(t *testing.T) {
	e, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic, Dimensions: 64})
	require.NoError(t, err)

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &StaticEmbedder{}, cached.Inner())
	assert.Equal(t, 64, e.Dimensions())
}

func TestNewEmbedder_CacheCanBeDisabled(t *testing.T) {
	e, err := NewEmbedder(context.Background(), Config{Provider: ProviderStatic, CacheSize: -1})
	require.NoError(t, err)
	assert.IsType(t, &StaticEmbedder{}, e)
}

func TestNewEmbedder_AutoFallsBackToStatic(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	e, err := NewEmbedder(context.Background(), Config{Provider: ProviderAuto, Host: host, CacheSize: -1})
	require.NoError(t, err)
	assert.IsType(t, &StaticEmbedder{}, e)
}

func TestNewEmbedder_ExplicitOllamaDoesNotFallBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	_, err := NewEmbedder(context.Background(), Config{Provider: ProviderOllama, Host: host})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama unavailable")
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), Config{Provider: "mlx"})
	assert.Error(t, err)
}
