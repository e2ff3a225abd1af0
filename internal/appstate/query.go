package appstate

import (
	"slices"
	"strings"

	"github.com/mesh-intelligence/kennel/pkg/types"
)

// Breeds returns a copy of the loaded breed list in source order.
func (s *State) Breeds() []types.Breed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.breeds)
}

// Breed returns the loaded breed with the given id.
func (s *State) Breed(id any) (types.Breed, bool) {
	want := types.BreedID(types.NormalizeID(id))
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.breeds, func(b types.Breed) bool { return b.ID == want })
	if i < 0 {
		return types.Breed{}, false
	}
	return s.breeds[i], true
}

// Favorites returns the favorite ids in insertion order.
func (s *State) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites)
}

// IsFavorite reports whether id is in the favorite set.
func (s *State) IsFavorite(id any) bool {
	key := types.NormalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favSet[key]
	return ok
}

// Photos returns the photos, newest first.
func (s *State) Photos() []types.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.photos)
}

// Photo returns the photo with the given id.
func (s *State) Photo(id string) (types.Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.photos, func(p types.Photo) bool { return p.ID == id })
	if i < 0 {
		return types.Photo{}, false
	}
	return s.photos[i], true
}

// Settings returns the current settings.
func (s *State) Settings() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Filter selects breeds for the list and favorites screens. Zero fields
// match everything.
type Filter struct {
	// Query matches a substring of the breed name, ignoring case.
	Query string
	// Group matches the breed group exactly, ignoring case.
	Group string
	// FavoritesOnly keeps favorite breeds only.
	FavoritesOnly bool
}

// FilterBreeds returns the loaded breeds matching f, in source order.
func (s *State) FilterBreeds(f Filter) []types.Breed {
	group := strings.TrimSpace(f.Group)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Breed, 0, len(s.breeds))
	for _, b := range s.breeds {
		if !b.MatchesName(f.Query) {
			continue
		}
		if group != "" && !strings.EqualFold(b.BreedGroup, group) {
			continue
		}
		if f.FavoritesOnly {
			if _, ok := s.favSet[string(b.ID)]; !ok {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// SearchBreeds returns the breeds whose name contains query, ignoring case.
func (s *State) SearchBreeds(query string) []types.Breed {
	return s.FilterBreeds(Filter{Query: query})
}

// FavoriteBreeds returns the loaded breeds that are favorites. Favorite ids
// without a loaded breed are skipped.
func (s *State) FavoriteBreeds() []types.Breed {
	return s.FilterBreeds(Filter{FavoritesOnly: true})
}

// BreedGroups returns the distinct non-empty breed groups, sorted.
func (s *State) BreedGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []string
	for _, b := range s.breeds {
		if g := strings.TrimSpace(b.BreedGroup); g != "" {
			groups = append(groups, g)
		}
	}
	slices.Sort(groups)
	return slices.Compact(groups)
}
