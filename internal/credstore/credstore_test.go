package credstore_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/onvifd/camera-onvif-daemon/internal/credstore"
)

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	s, err := credstore.Load(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Has("admin") {
		t.Error("expected empty store for a missing file")
	}
}

func TestStore_SetUserThenLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.txt")
	s, err := credstore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := s.SetUser("admin", "hunter2"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	if !s.Has("admin") {
		t.Error("expected Has(admin) to be true after SetUser")
	}

	record, ok := s.Lookup("admin")
	if !ok {
		t.Fatal("expected Lookup to find admin")
	}
	if record == "" || !strings.Contains(record, "$") {
		t.Errorf("expected a salt$hash record, got %q", record)
	}
}

func TestStore_PersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.txt")
	s, err := credstore.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.SetUser("operator", "s3cret"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	reloaded, err := credstore.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Has("operator") {
		t.Error("expected the persisted user to survive a reload")
	}
}

func TestStore_DeleteUser(t *testing.T) {
	s := credstore.New()
	if err := s.SetUser("admin", "pw"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	ok, err := s.DeleteUser("admin")
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if !ok {
		t.Error("expected DeleteUser to report true for an existing user")
	}
	if s.Has("admin") {
		t.Error("expected admin to be gone after DeleteUser")
	}

	ok, err = s.DeleteUser("admin")
	if err != nil {
		t.Fatalf("DeleteUser on missing user: %v", err)
	}
	if ok {
		t.Error("expected DeleteUser to report false for an already-deleted user")
	}
}

func TestStore_LookupUnknownUser(t *testing.T) {
	s := credstore.New()
	if _, ok := s.Lookup("nobody"); ok {
		t.Error("expected Lookup to fail for an unknown user")
	}
}
