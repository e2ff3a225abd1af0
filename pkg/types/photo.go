package types

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Photo is a captured picture with a user note. CreatedAt is epoch
// milliseconds.
type Photo struct {
	ID        string `json:"id"`
	URI       string `json:"uri"`
	Note      string `json:"note"`
	CreatedAt int64  `json:"createdAt"`
}

// NewPhoto wraps a capture result into a Photo. The id is a UUID v7, so it
// sorts by capture time and stays unique for captures that land in the
// same millisecond.
func NewPhoto(uri string, takenAt time.Time) Photo {
	if takenAt.IsZero() {
		takenAt = time.Now()
	}
	return Photo{
		ID:        newPhotoID(takenAt),
		URI:       uri,
		CreatedAt: takenAt.UnixMilli(),
	}
}

// Time returns CreatedAt as a time.Time.
func (p Photo) Time() time.Time {
	return time.UnixMilli(p.CreatedAt)
}

// newPhotoID generates a UUID v7 photo id.
func newPhotoID(takenAt time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to the capture timestamp plus a random suffix.
		return strconv.FormatInt(takenAt.UnixMilli(), 10) + "-" + uuid.New().String()[:8]
	}
	return id.String()
}

// Settings holds user preferences. There is exactly one Settings value.
type Settings struct {
	DarkMode bool `json:"darkMode"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{DarkMode: false}
}
