// Package app wires every domain package into a single running instance
// from a config.Config, the way the teacher's main.go builds its
// wallpaper.Plugin by hand (no DI container, per spec §9 design notes).
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"math/rand/v2"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dixieflatline76/spicetaste/internal/config"
	"github.com/dixieflatline76/spicetaste/internal/obslog"
	"github.com/dixieflatline76/spicetaste/internal/sysguard"
	"github.com/dixieflatline76/spicetaste/pkg/cachefs"
	"github.com/dixieflatline76/spicetaste/pkg/catalog"
	"github.com/dixieflatline76/spicetaste/pkg/download"
	"github.com/dixieflatline76/spicetaste/pkg/exploration"
	"github.com/dixieflatline76/spicetaste/pkg/feedback"
	"github.com/dixieflatline76/spicetaste/pkg/history"
	"github.com/dixieflatline76/spicetaste/pkg/orchestrator"
	"github.com/dixieflatline76/spicetaste/pkg/preference"
	"github.com/dixieflatline76/spicetaste/pkg/queue"
	"github.com/dixieflatline76/spicetaste/pkg/scheduler"
)

// App is the fully-wired instance cmd/spicetaste drives.
type App struct {
	Config       *config.Config
	Store        *preference.Store
	Learner      *preference.Learner
	Catalog      *catalog.Catalog
	Queue        *queue.Queue
	Cache        *cachefs.Manager
	Downloader   *download.Downloader
	History      *history.Log
	Feedback     *feedback.Processor
	Policy       *exploration.Policy
	Orchestrator *orchestrator.Orchestrator
	Scheduler    *scheduler.Scheduler
	Guard        *sysguard.Guard

	httpClient *http.Client
}

// New builds an App from cfg. It opens (or creates) the on-disk
// preference store and cache directory under cfg.DataDir, but does not
// fetch the catalog manifest or start the scheduler loops — callers drive
// those explicitly (cmd/spicetaste's run/tick subcommands).
func New(cfg *config.Config) (*App, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("app: resolve data dir: %w", err)
		}
		dataDir = filepath.Join(home, ".spicetaste")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: create data dir: %w", err)
	}

	store, err := preference.Open(filepath.Join(dataDir, "preferences"))
	if err != nil {
		return nil, fmt.Errorf("app: open preference store: %w", err)
	}
	learner := preference.NewLearner(store)

	q := queue.New()
	cache := cachefs.New(filepath.Join(dataDir, "cache"), cfg.CacheBudgetBytes, func(id string) {
		q.MarkUndownloaded(id)
		obslog.Info("cache evicted wallpaper", zap.String("id", id))
	})
	if err := cache.EnsureDir(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: create cache dir: %w", err)
	}

	cat := catalog.New()
	hist := history.New()
	fb := feedback.New(learner, store)
	policy := exploration.New()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
	downloader := download.New(httpFetcher(httpClient), cache, q, download.DefaultConcurrency, 5)

	orc := orchestrator.New()
	orc.Catalog = cat
	orc.Store = store
	orc.Learner = learner
	orc.Queue = q
	orc.Cache = cache
	orc.Downloader = downloader
	orc.History = hist
	orc.Feedback = fb
	orc.Policy = policy
	orc.Rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	orc.Apply = defaultApplyPrimitive(filepath.Join(dataDir, "current"))
	orc.LiveWallpaper = func() bool { return false }

	guard := sysguard.New(dataDir)
	sched := scheduler.New(guard)

	a := &App{
		Config:       cfg,
		Store:        store,
		Learner:      learner,
		Catalog:      cat,
		Queue:        q,
		Cache:        cache,
		Downloader:   downloader,
		History:      hist,
		Feedback:     fb,
		Policy:       policy,
		Orchestrator: orc,
		Scheduler:    sched,
		Guard:        guard,
		httpClient:   httpClient,
	}
	a.wireDuties()
	return a, nil
}

// wireDuties populates Scheduler's four named duties against this App's
// collaborators (spec §4.11).
func (a *App) wireDuties() {
	a.Scheduler.CatalogRefresh = &scheduler.Duty{
		Name:            "catalog_refresh",
		RequiresNetwork: true,
		Fn:              a.RefreshCatalog,
	}
	a.Scheduler.Rotation = &scheduler.Duty{
		Name: "rotation",
		Fn: func(ctx context.Context) error {
			return a.Orchestrator.ApplyNext(ctx, false, orchestrator.ApplyTarget(a.Config.ApplyTarget))
		},
	}
	a.Scheduler.BatchDownload = &scheduler.Duty{
		Name:              "batch_download",
		RequiresNetwork:   true,
		RequiresStorageOK: true,
		Fn:                a.downloadQueued,
	}
	a.Scheduler.Cleanup = &scheduler.Duty{
		Name: "cleanup",
		Fn:   a.cleanup,
	}
}

// downloadQueued fetches every not-yet-downloaded, retry-eligible item at
// the front of the queue (spec §4.11 batch-download duty).
func (a *App) downloadQueued(ctx context.Context) error {
	items := a.Queue.GetTopUndownloaded(download.DefaultConcurrency * 4)
	if len(items) == 0 {
		return nil
	}
	snap := a.Catalog.Snap()
	targets := make([]download.Target, 0, len(items))
	for _, item := range items {
		if wp, ok := snap.Get(item.ID); ok {
			targets = append(targets, download.Target{ID: wp.ID, URL: wp.URL})
		}
	}
	return a.Downloader.RunBatch(ctx, targets, nil)
}

// cleanup removes the cached files of currently-disliked ids, evicts cache
// entries over budget and trims history to its cap; it does not prune the
// download queue (spec §4.11 cleanup duty, run daily near 03:00).
func (a *App) cleanup(ctx context.Context) error {
	a.History.Trim()
	for id := range a.Store.Get().DislikedIDs {
		if err := a.Cache.Evict(id); err != nil {
			return err
		}
	}
	return a.Cache.AfterInsert()
}

// defaultApplyPrimitive stands in for the platform-specific desktop-paint
// call spec §6 calls out as external and not implemented here: it symlinks
// the chosen wallpaper to a stable path so a caller (shell script, systemd
// unit, desktop-environment hook) can pick it up. Production deployments
// should override Orchestrator.Apply with a real OS-specific primitive.
func defaultApplyPrimitive(currentLinkPath string) orchestrator.ApplyPrimitive {
	return func(_ context.Context, filePath string, _ orchestrator.ApplyTarget) error {
		_ = os.Remove(currentLinkPath)
		return os.Symlink(filePath, currentLinkPath)
	}
}

// Close releases the App's held resources.
func (a *App) Close() error {
	return a.Store.Close()
}

// httpFetcher adapts *http.Client into a download.Fetcher.
func httpFetcher(client *http.Client) download.Fetcher {
	return func(ctx context.Context, url string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("download: unexpected status %d fetching %s", resp.StatusCode, url)
		}
		return resp.Body, nil
	}
}

// RefreshCatalog fetches the manifest from cfg.ManifestURL and replaces the
// catalog's contents wholesale. If cfg.JWTPublicKey is set, the manifest is
// expected to be delivered as a signed JWS envelope (spec §6); otherwise it
// is parsed as plain JSON.
func (a *App) RefreshCatalog(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Config.ManifestURL, nil)
	if err != nil {
		return fmt.Errorf("app: build manifest request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("app: fetch manifest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("app: manifest server error %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("app: manifest client error %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("app: read manifest body: %w", err)
	}

	var manifest catalog.Manifest
	if a.Config.JWTPublicKey != "" {
		manifest, err = catalog.ParseSignedManifest(string(body), func(t *jwt.Token) (interface{}, error) {
			return []byte(a.Config.JWTPublicKey), nil
		})
	} else {
		manifest, err = catalog.ParseManifest(body)
	}
	if err != nil {
		return fmt.Errorf("app: parse manifest: %w", err)
	}

	kept := manifest.Wallpapers[:0]
	for _, w := range manifest.Wallpapers {
		if (w.Source == catalog.SourceGitHub && !a.Config.SourcesEnabled.GitHub) ||
			(w.Source == catalog.SourceBing && !a.Config.SourcesEnabled.Bing) {
			continue
		}
		kept = append(kept, w)
	}
	manifest.Wallpapers = kept

	a.Catalog.RefreshFromManifest(manifest)
	return nil
}
