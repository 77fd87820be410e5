// Package memory is the in-memory identity store, for dev and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/tokenbridge/internal/identity"
)

type Store struct {
	c *gocache.Cache

	// mu serializa create/update; go-cache es atómico por operación pero el
	// read-modify-write de UpdateUser no lo es.
	mu sync.Mutex
}

func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (s *Store) GetUser(_ context.Context, uid string) (*identity.User, error) {
	v, ok := s.c.Get(uid)
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	u := v.(identity.User)
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*identity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, identity.ErrUserNotFound
	}
	for _, item := range s.c.Items() {
		u := item.Object.(identity.User)
		if strings.ToLower(u.Email) == email {
			out := u
			return &out, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (s *Store) CreateUser(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cp := *u
	cp.CreatedAt = now
	cp.UpdatedAt = now
	if err := s.c.Add(cp.UID, cp, gocache.NoExpiration); err != nil {
		return identity.ErrUserExists
	}
	return nil
}

func (s *Store) UpdateUser(_ context.Context, uid string, upd identity.Update) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(uid)
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	u := v.(identity.User)
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = *upd.PhotoURL
	}
	u.UpdatedAt = time.Now().UTC()
	s.c.Set(uid, u, gocache.NoExpiration)
	out := u
	return &out, nil
}

func (s *Store) SetCustomClaims(_ context.Context, uid string, claims map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(uid)
	if !ok {
		return identity.ErrUserNotFound
	}
	u := v.(identity.User)
	if u.CustomClaims == nil {
		u.CustomClaims = make(map[string]any, len(claims))
	}
	for k, val := range claims {
		u.CustomClaims[k] = val
	}
	u.UpdatedAt = time.Now().UTC()
	s.c.Set(uid, u, gocache.NoExpiration)
	return nil
}
