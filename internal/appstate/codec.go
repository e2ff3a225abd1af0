package appstate

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

var errInvalidJSON = errors.New("value is not valid JSON")

// decodeBreeds decodes the breed cache. null decodes to an empty list.
func decodeBreeds(raw []byte) ([]types.Breed, error) {
	var breeds []types.Breed
	if err := json.Unmarshal(raw, &breeds); err != nil {
		return nil, err
	}
	return breeds, nil
}

// decodeFavorites decodes the favorite set. Members may be strings or
// numbers; each is normalized, and empty or repeated ids are dropped.
func decodeFavorites(raw []byte) ([]string, error) {
	if !json.Valid(raw) {
		return nil, errInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var members []any
	if err := dec.Decode(&members); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		id := types.NormalizeID(m)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func decodePhotos(raw []byte) ([]types.Photo, error) {
	var photos []types.Photo
	if err := json.Unmarshal(raw, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// decodeSettings decodes the settings object. Unknown fields are ignored and
// missing fields keep their defaults.
func decodeSettings(raw []byte) (types.Settings, error) {
	settings := types.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return types.DefaultSettings(), err
	}
	return settings, nil
}

// encodeList marshals a collection, writing an empty array instead of null.
func encodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
