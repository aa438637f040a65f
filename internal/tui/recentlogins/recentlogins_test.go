// ABOUTME: Tests for recent login management
// ABOUTME: Validates config dir storage, max limit, normalization and deduplication

package recentlogins

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	r := New(tmpDir)

	if r == nil {
		t.Fatal("New() returned nil")
	}
	if r.configDir != tmpDir {
		t.Errorf("expected configDir %s, got %s", tmpDir, r.configDir)
	}
}

func TestLoadEmpty(t *testing.T) {
	r := New(t.TempDir())

	emails, err := r.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(emails) != 0 {
		t.Errorf("expected empty list, got %d emails", len(emails))
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	if err := New(tmpDir).Save([]string{"a@example.com", "b@example.com"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := New(tmpDir).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(loaded))
	}
	if loaded[0] != "a@example.com" {
		t.Errorf("expected a@example.com first, got %s", loaded[0])
	}
}

func TestAddMoveToFront(t *testing.T) {
	r := New(t.TempDir())

	r.Add("first@example.com")
	r.Add("second@example.com")

	emails, _ := r.Load()
	if len(emails) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(emails))
	}
	if emails[0] != "second@example.com" {
		t.Errorf("expected second@example.com first, got %s", emails[0])
	}

	// Re-adding with different case and whitespace moves the existing entry
	r.Add("  First@Example.com ")
	emails, _ = r.Load()
	if len(emails) != 2 {
		t.Fatalf("expected 2 emails after re-add, got %d", len(emails))
	}
	if emails[0] != "first@example.com" {
		t.Errorf("expected first@example.com first after re-add, got %s", emails[0])
	}
}

func TestAddIgnoresBlank(t *testing.T) {
	r := New(t.TempDir())

	if err := r.Add("   "); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if len(r.List()) != 0 {
		t.Errorf("expected blank email to be ignored, got %v", r.List())
	}
}

func TestMaxLimit(t *testing.T) {
	r := New(t.TempDir())

	var last string
	for i := 1; i <= 7; i++ {
		last = "user" + string(rune('0'+i)) + "@example.com"
		r.Add(last)
	}

	emails, _ := r.Load()
	if len(emails) != MaxRecent {
		t.Errorf("expected %d emails max, got %d", MaxRecent, len(emails))
	}
	if emails[0] != last {
		t.Errorf("expected %s first, got %s", last, emails[0])
	}
}

func TestLoadCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "recent.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	emails, err := New(tmpDir).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(emails) != 0 {
		t.Errorf("expected corrupt file to yield empty list, got %v", emails)
	}
}

func TestCreatesConfigDir(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "catalog-browser")
	r := New(configDir)

	if _, err := os.Stat(configDir); !os.IsNotExist(err) {
		t.Fatal("config dir should not exist yet")
	}

	r.Add("user@example.com")

	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Error("config dir should have been created")
	}
}

func TestInMemoryWithoutConfigDir(t *testing.T) {
	r := New("")

	if err := r.Add("user@example.com"); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if got := r.List(); len(got) != 1 || got[0] != "user@example.com" {
		t.Errorf("expected in-memory list [user@example.com], got %v", got)
	}
}
