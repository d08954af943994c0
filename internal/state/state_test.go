package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestComputeHash(t *testing.T) {
	// Create temp file with known content
	tmpDir := t.TempDir()
	file1 := filepath.Join(tmpDir, "test1.txt")
	file2 := filepath.Join(tmpDir, "test2.txt")
	file3 := filepath.Join(tmpDir, "test1_copy.txt")

	os.WriteFile(file1, []byte("Hello, World!"), 0644)
	os.WriteFile(file2, []byte("Different content"), 0644)
	os.WriteFile(file3, []byte("Hello, World!"), 0644) // Same as file1

	hash1, err := ComputeHash(file1)
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}

	hash2, err := ComputeHash(file2)
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}

	hash3, err := ComputeHash(file3)
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}

	// Same content = same hash
	if hash1 != hash3 {
		t.Errorf("Same content should produce same hash: %s != %s", hash1, hash3)
	}

	// Different content = different hash
	if hash1 == hash2 {
		t.Errorf("Different content should produce different hash")
	}

	// Hash should be 32 hex chars
	if len(hash1) != 32 {
		t.Errorf("Hash should be 32 chars, got %d", len(hash1))
	}
}

func TestComputeHashSmallFile(t *testing.T) {
	tmpDir := t.TempDir()
	smallFile := filepath.Join(tmpDir, "small.txt")
	os.WriteFile(smallFile, []byte("tiny"), 0644)

	hash, err := ComputeHash(smallFile)
	if err != nil {
		t.Fatalf("ComputeHash failed on small file: %v", err)
	}

	if len(hash) != 32 {
		t.Errorf("Hash should be 32 chars even for small files, got %d", len(hash))
	}
}

func TestStore(t *testing.T) {
	// Use temp directory for state
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if want := filepath.Join(tmpDir, "narr", stateFileName); store.Path() != want {
		t.Errorf("Path() = %q, want %q", store.Path(), want)
	}

	storyID := "abcdef1234567890abcdef1234567890"

	if _, ok := store.Position(storyID); ok {
		t.Error("Position() found an entry for an unknown story")
	}

	want := Position{Chapter: 3, Sentence: 41}
	if err := store.SetPosition(storyID, want); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	if got, ok := store.Position(storyID); !ok || got != want {
		t.Errorf("Position() = %v, %v, want %v, true", got, ok, want)
	}

	if err := store.Clear(storyID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := store.Position(storyID); ok {
		t.Error("Position() still set after Clear")
	}
}

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()
	storyID := "story-1"

	// Create store and set position
	store1, err := NewStoreAt(dir)
	if err != nil {
		t.Fatalf("NewStoreAt failed: %v", err)
	}
	store1.SetPosition(storyID, Position{Chapter: 1, Sentence: 7})
	saved, err := store1.SaveSettings(Settings{Mode: Classic, Theme: Sepia, FontSize: 22, Speed: 1.5})
	if err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if saved.Scroll != Vertical {
		t.Errorf("SaveSettings() scroll = %q, want default %q", saved.Scroll, Vertical)
	}

	// Create new store instance - should load persisted data
	store2, err := NewStoreAt(dir)
	if err != nil {
		t.Fatalf("NewStoreAt failed: %v", err)
	}

	if got, _ := store2.Position(storyID); got != (Position{Chapter: 1, Sentence: 7}) {
		t.Errorf("Position() = %v from persisted state", got)
	}
	if got := store2.Settings(); got != saved {
		t.Errorf("Settings() = %+v, want %+v", got, saved)
	}
}

func TestStoreDefaultsAndCorruptFile(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStoreAt(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := store.Settings(); got != DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}

	os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0644)
	store, err = NewStoreAt(dir)
	if err != nil {
		t.Fatalf("corrupt state should not fail: %v", err)
	}
	if got := store.Settings(); got != DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}
}

func TestStorePartialFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, stateFileName), []byte(`{"settings":{"theme":"light"}}`), 0644)

	store, err := NewStoreAt(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := store.Settings()
	if got.Theme != Light {
		t.Errorf("Theme = %q, want light", got.Theme)
	}
	if got.FontSize != DefaultFontSize || got.Mode != Immersive || got.Speed != 1.0 {
		t.Errorf("missing keys should keep defaults, got %+v", got)
	}
	if err := store.SetPosition("s", Position{}); err != nil {
		t.Errorf("SetPosition() on file without positions: %v", err)
	}
}
