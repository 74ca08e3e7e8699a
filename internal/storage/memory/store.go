package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hongminglow/syncink-attendance/internal/models"
	"github.com/hongminglow/syncink-attendance/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store keeps every collection in process memory. A single mutex makes each
// call atomic, which is what the engine expects from its backing store.
type Store struct {
	mu       sync.RWMutex
	users    map[string]models.User
	entries  map[string]models.WorkEntry
	requests map[string]models.RetroactiveRequest
	settings *models.AttendanceSettings
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]models.User),
		entries:  make(map[string]models.WorkEntry),
		requests: make(map[string]models.RetroactiveRequest),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// CreateUser inserts a user, rejecting duplicate ids and emails.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	s.users[user.ID] = user
	return user, nil
}

// UpdateUser replaces an existing user record.
func (s *Store) UpdateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return models.User{}, storage.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	s.users[user.ID] = user
	return user, nil
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindUserByEmail fetches a user by exact email match.
func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteUser removes the user and every entry and request referencing them.
func (s *Store) DeleteUser(_ context.Context, id string) (storage.CascadeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.CascadeResult{}, storage.ErrNotFound
	}
	var res storage.CascadeResult
	removedEntries := make(map[string]struct{})
	for entryID, entry := range s.entries {
		if entry.UserID == id {
			delete(s.entries, entryID)
			removedEntries[entryID] = struct{}{}
			res.Entries++
		}
	}
	for reqID, req := range s.requests {
		_, orphaned := removedEntries[req.EntryID]
		if req.UserID == id || orphaned {
			delete(s.requests, reqID)
			res.Requests++
		}
	}
	delete(s.users, id)
	return res, nil
}

// CreateEntry inserts an entry, enforcing one entry per user per date.
func (s *Store) CreateEntry(_ context.Context, entry models.WorkEntry) (models.WorkEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; ok {
		return models.WorkEntry{}, storage.ErrAlreadyExists
	}
	for _, existing := range s.entries {
		if existing.UserID == entry.UserID && existing.Date == entry.Date {
			return models.WorkEntry{}, storage.ErrAlreadyExists
		}
	}
	s.entries[entry.ID] = entry
	return entry, nil
}

// FindEntryByID fetches an entry by id.
func (s *Store) FindEntryByID(_ context.Context, id string) (models.WorkEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return models.WorkEntry{}, storage.ErrNotFound
	}
	return entry, nil
}

// FindEntryByUserDate fetches the entry a user recorded for a date.
func (s *Store) FindEntryByUserDate(_ context.Context, userID, date string) (models.WorkEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.UserID == userID && entry.Date == date {
			return entry, nil
		}
	}
	return models.WorkEntry{}, storage.ErrNotFound
}

// ListEntries returns matching entries ordered by date then creation time.
func (s *Store) ListEntries(_ context.Context, filter storage.EntryFilter) ([]models.WorkEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.WorkEntry
	for _, entry := range s.entries {
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.From != "" && entry.Date < filter.From {
			continue
		}
		if filter.To != "" && entry.Date > filter.To {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateRequest inserts a request, enforcing one pending request per entry.
func (s *Store) CreateRequest(_ context.Context, req models.RetroactiveRequest) (models.RetroactiveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return models.RetroactiveRequest{}, storage.ErrAlreadyExists
	}
	if req.Status == models.StatusPending {
		for _, existing := range s.requests {
			if existing.EntryID == req.EntryID && existing.Status == models.StatusPending {
				return models.RetroactiveRequest{}, storage.ErrAlreadyExists
			}
		}
	}
	s.requests[req.ID] = req
	return req, nil
}

// FindRequestByID fetches a request by id.
func (s *Store) FindRequestByID(_ context.Context, id string) (models.RetroactiveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return models.RetroactiveRequest{}, storage.ErrNotFound
	}
	return req, nil
}

// ListRequests returns matching requests ordered by request date.
func (s *Store) ListRequests(_ context.Context, filter storage.RequestFilter) ([]models.RetroactiveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RetroactiveRequest
	for _, req := range s.requests {
		if filter.UserID != "" && req.UserID != filter.UserID {
			continue
		}
		if filter.EntryID != "" && req.EntryID != filter.EntryID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestDate.Equal(out[j].RequestDate) {
			return out[i].RequestDate.Before(out[j].RequestDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveReview applies a review only while the stored request is still pending.
func (s *Store) SaveReview(_ context.Context, req models.RetroactiveRequest, entry *models.WorkEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[req.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Status != models.StatusPending {
		return storage.ErrConflict
	}
	if entry != nil {
		if _, ok := s.entries[entry.ID]; !ok {
			return storage.ErrNotFound
		}
		s.entries[entry.ID] = *entry
	}
	s.requests[req.ID] = req
	return nil
}

// CreateAppliedRequest stores a reviewed request together with its entry change.
func (s *Store) CreateAppliedRequest(_ context.Context, req models.RetroactiveRequest, entry models.WorkEntry) (models.RetroactiveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return models.RetroactiveRequest{}, storage.ErrAlreadyExists
	}
	if _, ok := s.entries[entry.ID]; !ok {
		return models.RetroactiveRequest{}, storage.ErrNotFound
	}
	for _, existing := range s.requests {
		if existing.EntryID == req.EntryID && existing.Status == models.StatusPending {
			return models.RetroactiveRequest{}, storage.ErrAlreadyExists
		}
	}
	s.entries[entry.ID] = entry
	s.requests[req.ID] = req
	return req, nil
}

// GetSettings returns the stored settings record.
func (s *Store) GetSettings(_ context.Context) (models.AttendanceSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return models.AttendanceSettings{}, storage.ErrNotFound
	}
	return *s.settings, nil
}

// PutSettings replaces the settings record.
func (s *Store) PutSettings(_ context.Context, settings models.AttendanceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}
