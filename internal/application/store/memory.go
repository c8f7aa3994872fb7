package store

import (
	"context"
	"sort"
	"sync"

	"admitto/internal/application"
)

// InMemoryApplicationStore keeps application rows in memory for tests and
// local runs.
type InMemoryApplicationStore struct {
	mu   sync.RWMutex
	apps []application.Application
}

func NewInMemoryApplicationStore() *InMemoryApplicationStore {
	return &InMemoryApplicationStore{}
}

// Put stores an application row. Seeding helper; submission happens on the
// applicant-facing surface, not here.
func (s *InMemoryApplicationStore) Put(app application.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.apps {
		if s.apps[i].ID == app.ID {
			s.apps[i] = app
			return
		}
	}
	s.apps = append(s.apps, app)
}

func (s *InMemoryApplicationStore) List(_ context.Context, scope application.Scope, filter application.ListFilter) ([]application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]application.Application, 0, len(s.apps))
	for _, app := range s.apps {
		if app.InstitutionID != scope.InstitutionID || app.CourseID != scope.CourseID {
			continue
		}
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		matched = append(matched, app)
	}

	// Newest first, matching the SQL store's ORDER BY created_at DESC.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Start() >= len(matched) {
		return []application.Application{}, nil
	}
	matched = matched[filter.Start():]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
