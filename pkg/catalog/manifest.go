// Package catalog holds the in-memory index over the wallpaper manifest:
// the fixed, pre-embedded set of wallpapers the rest of the engine ranks
// and selects from. The manifest itself is a signed, versioned JSON blob
// fetched from the content CDN (spec §6); Catalog only ever replaces its
// contents wholesale on a successful refresh, and publishes the new
// snapshot via an atomic pointer swap so readers never observe a partial
// update.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

// Source identifies which content provider a wallpaper came from.
type Source string

// Known sources. Unrecognized values are accepted and passed through
// verbatim (display-only), per the manifest's "unknown fields are ignored"
// compatibility rule.
const (
	SourceGitHub Source = "GITHUB"
	SourceBing   Source = "BING"
)

// WallpaperMeta is the immutable, per-wallpaper record loaded from the
// manifest. Once loaded it is never mutated; a catalog refresh replaces
// the whole set.
type WallpaperMeta struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	ThumbnailURL  string    `json:"thumbnail"`
	Source        Source    `json:"source"`
	Category      string    `json:"category"`
	Palette       []string  `json:"colors"`
	Brightness    int       `json:"brightness"`
	Contrast      int       `json:"contrast"`
	Embedding     []float32 `json:"embedding"`
	Resolution    string    `json:"resolution"`
	Attribution   string    `json:"attribution"`
}

// rawWallpaper mirrors the wire format before defaults are applied, so we
// can tell "field absent" apart from "field present with zero value" for
// Contrast (defaults to 50) without a second decode pass.
type rawWallpaper struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail"`
	Source       Source    `json:"source"`
	Repo         string    `json:"repo"`
	Category     string    `json:"category"`
	Palette      []string  `json:"colors"`
	Brightness   int       `json:"brightness"`
	Contrast     *int      `json:"contrast"`
	Embedding    []float32 `json:"embedding"`
	Resolution   string    `json:"resolution"`
	Attribution  string    `json:"attribution"`
}

const defaultContrast = 50

func (r rawWallpaper) toMeta() WallpaperMeta {
	contrast := defaultContrast
	if r.Contrast != nil {
		contrast = *r.Contrast
	}
	return WallpaperMeta{
		ID:           r.ID,
		URL:          r.URL,
		ThumbnailURL: r.ThumbnailURL,
		Source:       r.Source,
		Category:     r.Category, // zero value "" matches spec default
		Palette:      r.Palette,
		Brightness:   r.Brightness,
		Contrast:     contrast,
		Embedding:    r.Embedding,
		Resolution:   r.Resolution,
		Attribution:  r.Attribution,
	}
}

// Manifest is the decoded, versioned catalog payload.
type Manifest struct {
	Version          int             `json:"version"`
	LastUpdated      string          `json:"last_updated"`
	ModelVersion     string          `json:"model_version"`
	EmbeddingDim     int             `json:"embedding_dim"`
	TotalWallpapers  int             `json:"total_wallpapers"`
	Wallpapers       []WallpaperMeta `json:"-"`
}

type rawManifest struct {
	Version         int            `json:"version"`
	LastUpdated     string         `json:"last_updated"`
	ModelVersion    string         `json:"model_version"`
	EmbeddingDim    int            `json:"embedding_dim"`
	TotalWallpapers int            `json:"total_wallpapers"`
	Wallpapers      []rawWallpaper `json:"wallpapers"`
}

// ParseManifest decodes a plain (unsigned) manifest JSON payload. Unknown
// fields are ignored by encoding/json's default behavior.
func ParseManifest(data []byte) (Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return Manifest{}, fmt.Errorf("catalog: manifest parse: %w", err)
	}
	m := Manifest{
		Version:         raw.Version,
		LastUpdated:     raw.LastUpdated,
		ModelVersion:    raw.ModelVersion,
		EmbeddingDim:    raw.EmbeddingDim,
		TotalWallpapers: raw.TotalWallpapers,
	}
	m.Wallpapers = make([]WallpaperMeta, 0, len(raw.Wallpapers))
	for _, rw := range raw.Wallpapers {
		meta := rw.toMeta()
		// Invariant: ||embedding||2 = 1 +/- 1e-3. Re-normalizing on load is
		// cheap and defends against manifest drift (spec §4.1 rationale).
		meta.Embedding = vector.Normalize(meta.Embedding)
		m.Wallpapers = append(m.Wallpapers, meta)
	}
	return m, nil
}

// manifestClaims wraps the manifest payload inside a JWT so the CDN-served
// blob can be verified as signed before it is trusted (spec §6: "versioned
// JSON blob, fetched over HTTPS; gzip optional" with the implied signing
// requirement that its [MODULE] wording as "signed" calls for).
type manifestClaims struct {
	jwt.RegisteredClaims
	Manifest json.RawMessage `json:"manifest"`
}

// ParseSignedManifest verifies and decodes a manifest delivered as a JWS
// envelope: a JWT whose claim set carries the manifest payload verbatim.
// keyFunc resolves the verification key the same way jwt.Parse's does
// (by inspecting the token's header), so callers can rotate keys by kid.
func ParseSignedManifest(token string, keyFunc jwt.Keyfunc) (Manifest, error) {
	var claims manifestClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, keyFunc,
		jwt.WithValidMethods([]string{"RS256", "ES256", "HS256"}))
	if err != nil {
		return Manifest{}, fmt.Errorf("catalog: signature verification failed: %w", err)
	}
	if !parsed.Valid {
		return Manifest{}, fmt.Errorf("catalog: manifest token is not valid")
	}
	return ParseManifest(claims.Manifest)
}
