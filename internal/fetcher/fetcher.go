// Package fetcher retrieves the breed list and breed images from the remote
// catalog API.
//
// The breed list follows a stale-cache-first policy: a cached list is
// returned without touching the network, a fresh response overwrites the
// cache, and a failed request falls back to the cache when one exists.
// Images are always fetched live.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/kennel/internal/metrics"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

const (
	// DefaultBaseURL is TheDogAPI v1 root.
	DefaultBaseURL = "https://api.thedogapi.com/v1"

	// DefaultTimeout bounds a single remote request.
	DefaultTimeout = 10 * time.Second

	// DefaultImageLimit is the image count requested when the caller passes
	// a non-positive limit.
	DefaultImageLimit = 10

	// cacheTimeout bounds cache reads and writes around a fetch.
	cacheTimeout = 5 * time.Second
)

// Endpoint labels for metrics and logs.
const (
	endpointBreeds = "breeds"
	endpointImages = "images"
)

// Config locates the remote API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Fetcher talks to the remote catalog API. Breed lists are cached in the
// store under types.KeyBreedsCache.
type Fetcher struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	timeout  time.Duration
	store    types.Store
	logger   *slog.Logger
	recorder metrics.Recorder

	// flights shares one in-flight breed request between concurrent callers.
	flights singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default http.Client. Request deadlines come
// from contexts, so the client needs no Timeout of its own.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.http = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(f *Fetcher) {
		if r != nil {
			f.recorder = r
		}
	}
}

// New creates a Fetcher. store may be nil, which disables the breed cache.
func New(store types.Store, cfg Config, opts ...Option) (*Fetcher, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	f := &Fetcher{
		http:     &http.Client{},
		baseURL:  strings.TrimRight(base, "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		timeout:  timeout,
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// BreedsURL returns the breed collection endpoint.
func (f *Fetcher) BreedsURL() string {
	return f.baseURL + "/breeds"
}

// ImagesURL returns the image search endpoint for breedID.
func (f *Fetcher) ImagesURL(breedID string, limit int) string {
	q := url.Values{}
	q.Set("breed_id", breedID)
	q.Set("limit", strconv.Itoa(limit))
	return f.baseURL + "/images/search?" + q.Encode()
}

// fetchOptions holds per-call settings for FetchBreeds.
type fetchOptions struct {
	useCache bool
	timeout  time.Duration
}

// FetchOption adjusts a single FetchBreeds call.
type FetchOption func(*fetchOptions)

// UseCache controls whether a cached list may answer the call, both before
// the request and as a fallback after a failed one. Defaults to true.
func UseCache(v bool) FetchOption {
	return func(o *fetchOptions) { o.useCache = v }
}

// Timeout bounds the network request. Defaults to the Fetcher's timeout.
func Timeout(d time.Duration) FetchOption {
	return func(o *fetchOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// FetchBreeds returns the breed list.
//
// With the cache enabled (the default) a cached list is returned immediately
// and no request is made. Otherwise the list is requested; a successful
// response replaces the cache. When the request fails or times out the
// cached list is served if there is one; without a cache the call fails
// with a *types.NetworkError. A deadline on ctx counts as a timeout. If ctx
// is cancelled the result is discarded and ctx.Err() is returned.
func (f *Fetcher) FetchBreeds(ctx context.Context, opts ...FetchOption) ([]types.Breed, error) {
	o := fetchOptions{useCache: true, timeout: f.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	defer func() { f.recorder.ObserveFetchDuration(endpointBreeds, time.Since(start)) }()

	if o.useCache {
		if breeds, ok := f.cachedBreeds(ctx); ok {
			f.recorder.IncFetchOutcome(endpointBreeds, metrics.FetchCacheHit)
			if f.logger.Enabled(ctx, slog.LevelDebug) {
				attrs := []any{"count", len(breeds)}
				if age, ok := f.cacheAge(ctx); ok {
					attrs = append(attrs, "age", age.Round(time.Second))
				}
				f.logger.Debug("breeds served from cache", attrs...)
			}
			return breeds, nil
		}
	}

	raw, breeds, err := f.requestBreeds(ctx, o.timeout)
	if err == nil {
		f.writeCache(ctx, raw)
		f.recorder.IncFetchOutcome(endpointBreeds, metrics.FetchNetwork)
		f.logger.Debug("breeds fetched", "count", len(breeds))
		return breeds, nil
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		f.recorder.IncFetchOutcome(endpointBreeds, metrics.FetchCanceled)
		return nil, ctx.Err()
	}

	if o.useCache {
		if cached, ok := f.cachedBreeds(context.WithoutCancel(ctx)); ok {
			f.recorder.IncFetchOutcome(endpointBreeds, metrics.FetchCacheFallback)
			f.logger.Warn("breed fetch failed, serving cached list", "error", err, "count", len(cached))
			return cached, nil
		}
	}

	f.recorder.IncFetchOutcome(endpointBreeds, metrics.FetchError)
	return nil, fmt.Errorf("fetch breeds: %w", err)
}

// flightResult carries a shared breed response.
type flightResult struct {
	raw    []byte
	breeds []types.Breed
}

// requestBreeds performs the breed request, sharing it with concurrent
// callers. The shared request is bounded by timeout and outlives a caller
// that gives up; each caller still waits no longer than its own timeout.
func (f *Fetcher) requestBreeds(ctx context.Context, timeout time.Duration) ([]byte, []types.Breed, error) {
	target := f.BreedsURL()

	ch := f.flights.DoChan(endpointBreeds, func() (any, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		raw, err := f.getJSON(reqCtx, target)
		if err != nil {
			return nil, err
		}
		var breeds []types.Breed
		if err := json.Unmarshal(raw, &breeds); err != nil {
			return nil, &types.NetworkError{
				Kind: types.NetworkConnectionFailed,
				URL:  target,
				Err:  fmt.Errorf("decode breeds: %w", err),
			}
		}
		return flightResult{raw: raw, breeds: breeds}, nil
	})

	wait := time.NewTimer(timeout)
	defer wait.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, nil, res.Err
		}
		fr := res.Val.(flightResult)
		// Shared callers each get their own slice.
		return fr.raw, append([]types.Breed(nil), fr.breeds...), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, &types.NetworkError{Kind: types.NetworkTimeout, URL: target, Err: ctx.Err()}
		}
		return nil, nil, ctx.Err()
	case <-wait.C:
		return nil, nil, &types.NetworkError{Kind: types.NetworkTimeout, URL: target, Err: context.DeadlineExceeded}
	}
}

// cachedBreeds decodes the cached breed list. A missing or undecodable
// cache reports ok == false.
func (f *Fetcher) cachedBreeds(ctx context.Context) ([]types.Breed, bool) {
	if f.store == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	raw, ok := f.store.Read(ctx, types.KeyBreedsCache)
	if !ok {
		return nil, false
	}
	var breeds []types.Breed
	if err := json.Unmarshal(raw, &breeds); err != nil {
		f.logger.Warn("breed cache is corrupt",
			"error", types.NewStoreError(types.StoreCorruptData, types.KeyBreedsCache, err))
		return nil, false
	}
	return breeds, true
}

// writeTimer is implemented by stores that record when a key was written.
type writeTimer interface {
	UpdatedAt(ctx context.Context, key types.Key) (time.Time, bool)
}

// cacheAge reports how long ago the breed cache was written, when the store
// tracks it.
func (f *Fetcher) cacheAge(ctx context.Context) (time.Duration, bool) {
	wt, ok := f.store.(writeTimer)
	if !ok {
		return 0, false
	}
	at, ok := wt.UpdatedAt(ctx, types.KeyBreedsCache)
	if !ok {
		return 0, false
	}
	return time.Since(at), true
}

// writeCache stores the raw response as the new breed cache. Failures are
// logged and otherwise ignored.
func (f *Fetcher) writeCache(ctx context.Context, raw []byte) {
	if f.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	if err := f.store.Write(ctx, types.KeyBreedsCache, raw); err != nil {
		f.logger.Warn("breed cache write failed", "error", err)
	}
}

// FetchBreedImages returns up to limit images of the breed. Images are never
// cached. A non-positive limit requests DefaultImageLimit images; a
// non-positive timeout uses the Fetcher's timeout. Failures are returned as
// *types.NetworkError so the caller can offer a retry.
func (f *Fetcher) FetchBreedImages(ctx context.Context, breedID any, limit int, timeout time.Duration) ([]types.BreedImage, error) {
	id := types.NormalizeID(breedID)
	if id == "" {
		return nil, errors.New("fetch breed images: breed id must not be empty")
	}
	if limit <= 0 {
		limit = DefaultImageLimit
	}
	if timeout <= 0 {
		timeout = f.timeout
	}

	start := time.Now()
	defer func() { f.recorder.ObserveFetchDuration(endpointImages, time.Since(start)) }()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := f.ImagesURL(id, limit)
	raw, err := f.getJSON(reqCtx, target)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			f.recorder.IncFetchOutcome(endpointImages, metrics.FetchCanceled)
			return nil, ctx.Err()
		}
		f.recorder.IncFetchOutcome(endpointImages, metrics.FetchError)
		return nil, fmt.Errorf("fetch breed images: %w", err)
	}

	var images []types.BreedImage
	if err := json.Unmarshal(raw, &images); err != nil {
		f.recorder.IncFetchOutcome(endpointImages, metrics.FetchError)
		return nil, fmt.Errorf("fetch breed images: %w", &types.NetworkError{
			Kind: types.NetworkConnectionFailed,
			URL:  target,
			Err:  fmt.Errorf("decode images: %w", err),
		})
	}

	f.recorder.IncFetchOutcome(endpointImages, metrics.FetchNetwork)
	return images, nil
}
