// Package credstore implements the file-backed Basic-auth credential
// store: one "user:saltHex$hashHex" record per line, hashed with
// SHA-256(password‖salt) and compared in constant time.
package credstore

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Store is a mutable, file-backed username → "salt$hash" table.
type Store struct {
	mu      sync.RWMutex
	path    string
	records map[string]string
}

// New creates an empty, in-memory-only store.
func New() *Store {
	return &Store{records: make(map[string]string)}
}

// Load reads path into a Store. A missing file yields an empty store,
// not an error, matching the config loader's tolerant-defaults stance.
func Load(path string) (*Store, error) {
	s := &Store{path: path, records: make(map[string]string)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, record, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		s.records[user] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	return s, nil
}

// Lookup implements httpx.CredentialLookup.
func (s *Store) Lookup(username string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[username]
	return record, ok
}

// SetUser creates or replaces username's password, hashing it with a
// freshly generated 16-byte salt.
func (s *Store) SetUser(username, password string) error {
	record, err := hashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[username] = record
	s.mu.Unlock()

	return s.persist()
}

// DeleteUser removes username. Deleting an unknown user reports ok=false.
func (s *Store) DeleteUser(username string) (ok bool, err error) {
	s.mu.Lock()
	if _, exists := s.records[username]; !exists {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.records, username)
	s.mu.Unlock()

	return true, s.persist()
}

// Has reports whether username has a stored record.
func (s *Store) Has(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[username]
	return ok
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := sha256.Sum256(append([]byte(password), salt...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:]), nil
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for user, record := range s.records {
		fmt.Fprintf(&b, "%s:%s\n", user, record)
	}

	return os.WriteFile(s.path, []byte(b.String()), 0o600)
}
