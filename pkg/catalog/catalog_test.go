package catalog_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixieflatline76/spicetaste/pkg/catalog"
)

func TestParseManifestMissingFieldsGetDefaults(t *testing.T) {
	data := []byte(`{
		"version": 1,
		"model_version": "v1",
		"embedding_dim": 3,
		"wallpapers": [
			{"id": "w1", "url": "https://x/1.jpg", "embedding": [1,0,0]}
		]
	}`)
	m, err := catalog.ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, m.Wallpapers, 1)
	assert.Equal(t, 50, m.Wallpapers[0].Contrast)
	assert.Equal(t, "", m.Wallpapers[0].Category)
}

func TestParseManifestNormalizesEmbedding(t *testing.T) {
	data := []byte(`{"wallpapers": [{"id": "w1", "embedding": [2,0,0]}]}`)
	m, err := catalog.ParseManifest(data)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(m.Wallpapers[0].Embedding[0]), 1e-6)
}

func TestParseManifestUnknownFieldsIgnored(t *testing.T) {
	data := []byte(`{"wallpapers": [{"id": "w1", "embedding": [1,0,0], "totally_unknown_field": 42}]}`)
	_, err := catalog.ParseManifest(data)
	require.NoError(t, err)
}

func TestParseManifestExplicitContrastRespected(t *testing.T) {
	data := []byte(`{"wallpapers": [{"id": "w1", "embedding": [1,0,0], "contrast": 10}]}`)
	m, err := catalog.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Wallpapers[0].Contrast)
}

func TestCatalogRefreshAndSnapshot(t *testing.T) {
	c := catalog.New()
	snap := c.Snap()
	assert.True(t, snap.Empty())

	m, err := catalog.ParseManifest([]byte(`{"model_version":"v1","wallpapers":[{"id":"a","embedding":[1,0,0]},{"id":"b","embedding":[0,1,0]}]}`))
	require.NoError(t, err)
	c.RefreshFromManifest(m)

	newSnap := c.Snap()
	assert.Equal(t, 2, newSnap.Len())
	w, ok := newSnap.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", w.ID)

	// The old snapshot handle must remain valid (immutable snapshot
	// semantics): it should still report empty even after refresh.
	assert.True(t, snap.Empty())
}

func TestParseSignedManifestRoundTrip(t *testing.T) {
	secret := []byte("test-signing-key")
	claims := jwt.MapClaims{
		"manifest": map[string]any{
			"version":       1,
			"model_version": "v1",
			"wallpapers": []map[string]any{
				{"id": "a", "embedding": []float64{1, 0, 0}},
			},
		},
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)

	m, err := catalog.ParseSignedManifest(signed, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	require.NoError(t, err)
	require.Len(t, m.Wallpapers, 1)
	assert.Equal(t, "a", m.Wallpapers[0].ID)
}

func TestParseSignedManifestRejectsBadSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"manifest": map[string]any{}})
	signed, err := tok.SignedString([]byte("key-a"))
	require.NoError(t, err)

	_, err = catalog.ParseSignedManifest(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("key-b"), nil
	})
	require.Error(t, err)
}
