package metrics

import "time"

// FetchOutcome labels how a fetch was answered.
type FetchOutcome string

const (
	FetchNetwork       FetchOutcome = "network"
	FetchCacheHit      FetchOutcome = "cache_hit"
	FetchCacheFallback FetchOutcome = "cache_fallback"
	FetchError         FetchOutcome = "error"
	FetchCanceled      FetchOutcome = "canceled"
)

// HydrationResult labels what Initialize found for one store key.
type HydrationResult string

const (
	HydrationLoaded  HydrationResult = "loaded"
	HydrationMissing HydrationResult = "missing"
	HydrationCorrupt HydrationResult = "corrupt"
)

// Recorder defines observability hooks for the fetcher and the application
// state. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveFetchDuration(endpoint string, d time.Duration)
	IncFetchOutcome(endpoint string, outcome FetchOutcome)
	IncHydration(key string, result HydrationResult)
	IncStoreWrite(key string, success bool)
	ObserveStoreWriteDuration(key string, d time.Duration)
	SetPendingWrites(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetchDuration(string, time.Duration)      {}
func (NoopRecorder) IncFetchOutcome(string, FetchOutcome)            {}
func (NoopRecorder) IncHydration(string, HydrationResult)            {}
func (NoopRecorder) IncStoreWrite(string, bool)                      {}
func (NoopRecorder) ObserveStoreWriteDuration(string, time.Duration) {}
func (NoopRecorder) SetPendingWrites(int)                            {}
