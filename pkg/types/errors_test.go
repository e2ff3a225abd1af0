package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkErrorIs(t *testing.T) {
	tests := []struct {
		name string
		err  *NetworkError
		want error
		not  []error
	}{
		{
			name: "timeout",
			err:  &NetworkError{Kind: NetworkTimeout, URL: "https://example.test", Err: context.DeadlineExceeded},
			want: ErrTimeout,
			not:  []error{ErrConnectionFailed, ErrHTTPStatus},
		},
		{
			name: "connection failed",
			err:  &NetworkError{Kind: NetworkConnectionFailed, URL: "https://example.test", Err: errors.New("refused")},
			want: ErrConnectionFailed,
			not:  []error{ErrTimeout, ErrHTTPStatus},
		},
		{
			name: "http status",
			err:  &NetworkError{Kind: NetworkHTTPStatus, StatusCode: 503, URL: "https://example.test"},
			want: ErrHTTPStatus,
			not:  []error{ErrTimeout, ErrConnectionFailed},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("fetch breeds: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.want)
			for _, other := range tt.not {
				assert.NotErrorIs(t, wrapped, other)
			}
			var ne *NetworkError
			assert.True(t, errors.As(wrapped, &ne))
			assert.Equal(t, tt.err.Kind, ne.Kind)
		})
	}
}

func TestNetworkErrorUnwrapsCause(t *testing.T) {
	err := &NetworkError{Kind: NetworkTimeout, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestStoreErrorIs(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStoreError(StoreWriteFailure, KeyPhotos, cause)

	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrReadFailure)
	assert.Contains(t, err.Error(), "@kennel/photos")
	assert.Equal(t, "write_failure", err.Kind.String())
}

func TestKeySlug(t *testing.T) {
	assert.Equal(t, "breeds_cache", KeyBreedsCache.Slug())
	assert.Equal(t, "favorites", KeyFavorites.Slug())
	assert.True(t, KeySettings.Valid())
	assert.False(t, Key("@kennel/other").Valid())
}
