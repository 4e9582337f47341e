package auth

import (
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type MemStore struct {
	mu      sync.RWMutex
	byEmail map[string]User
	cost    int
}

func NewMemStore() *MemStore {
	return &MemStore{byEmail: make(map[string]User), cost: bcrypt.DefaultCost}
}

// NewSeededStore returns a store holding the default admin and shopper
// accounts. cost lets tests trade hash strength for speed.
func NewSeededStore(cost int) (*MemStore, error) {
	s := NewMemStore()
	s.cost = cost

	seed := []struct{ id, email, password, role string }{
		{"1", "admin@example.com", "admin123", RoleAdmin},
		{"2", "user@example.com", "user123", RoleUser},
	}
	for _, u := range seed {
		if err := s.Create(u.email, u.password, u.role, u.id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemStore) Create(email, password, role, id string) error {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return ErrEmailExists
	}

	s.byEmail[email] = User{ID: id, Email: email, Hash: hash, Role: role}
	return nil
}

func (s *MemStore) Verify(email, password string) (User, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)

	s.mu.RLock()
	u, ok := s.byEmail[email]
	s.mu.RUnlock()

	if !ok {
		return User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(u.Hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
