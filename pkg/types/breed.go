package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BreedID is the canonical string form of a breed identifier. The remote
// source sends numeric ids; BreedID accepts a JSON number or string and
// always holds the string form, so ids compare equal regardless of how they
// arrived.
type BreedID string

// String returns the id as a plain string.
func (id BreedID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *BreedID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = BreedID(NormalizeID(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("breed id: %w", err)
	}
	*id = BreedID(NormalizeID(n))
	return nil
}

// NormalizeID converts a breed or favorite identifier of any supported type
// to its canonical string form. Numbers format without a fractional part
// when they are integral (42 and 42.0 both become "42"); strings are
// trimmed. Unsupported values (nil, maps, slices) normalize to "".
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case BreedID:
		return strings.TrimSpace(string(id))
	case int:
		return strconv.Itoa(id)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", id)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", id)
	case float32:
		return formatFloatID(float64(id))
	case float64:
		return formatFloatID(id)
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := id.Float64(); err == nil {
			return formatFloatID(f)
		}
		return strings.TrimSpace(id.String())
	case fmt.Stringer:
		return strings.TrimSpace(id.String())
	default:
		return ""
	}
}

func formatFloatID(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Measure holds a metric and imperial range as reported by the remote source,
// for example "3 - 6".
type Measure struct {
	Imperial string `json:"imperial,omitempty"`
	Metric   string `json:"metric"`
}

// BreedImage is a picture of a breed. Images are fetched per detail view and
// never persisted.
type BreedImage struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Breed is one catalog entry. Breeds are immutable once fetched.
type Breed struct {
	ID               BreedID     `json:"id"`
	Name             string      `json:"name"`
	Temperament      string      `json:"temperament,omitempty"`
	BreedGroup       string      `json:"breed_group,omitempty"`
	LifeSpan         string      `json:"life_span,omitempty"`
	BredFor          string      `json:"bred_for,omitempty"`
	Origin           string      `json:"origin,omitempty"`
	ReferenceImageID string      `json:"reference_image_id,omitempty"`
	Weight           Measure     `json:"weight"`
	Height           Measure     `json:"height"`
	Image            *BreedImage `json:"image,omitempty"`
}

// ImageURL returns the URL of the breed's reference image, or "" when the
// breed has none.
func (b Breed) ImageURL() string {
	if b.Image == nil {
		return ""
	}
	return b.Image.URL
}

// MatchesName reports whether the breed name contains query, ignoring case.
// An empty query matches every breed.
func (b Breed) MatchesName(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), strings.ToLower(query))
}
