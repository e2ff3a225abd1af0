// Package types defines the breed catalog entities, the Store interface and
// its keys, configuration, and the standard error types shared by the
// fetcher, the storage backends and the application state.
package types
