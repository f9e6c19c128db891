package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openCatalog(t *testing.T) (*Storage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.sealfile")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db, dbPath
}

func TestOpenAndInitialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sealfile")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}

	created, err := db.GetCreated()
	if err != nil {
		t.Fatalf("Failed to get created time: %v", err)
	}

	// Second Initialize keeps the original creation time
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to re-initialize: %v", err)
	}
	again, err := db.GetCreated()
	if err != nil {
		t.Fatalf("Failed to get created time: %v", err)
	}
	if !again.Equal(created) {
		t.Errorf("Created time changed: %v -> %v", created, again)
	}
}

func TestUninitializedOperations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sealfile")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Get("a.enc"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if err := db.Put(Entry{Envelope: "a.enc"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if _, err := db.GetOrCreateCatalogID(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestCatalogID(t *testing.T) {
	db, _ := openCatalog(t)
	defer db.Close()

	if _, err := db.GetCatalogID(); err == nil {
		t.Error("Expected error before catalog ID exists")
	}

	id, err := db.GetOrCreateCatalogID()
	if err != nil {
		t.Fatalf("Failed to create catalog ID: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("Expected UUID string, got %q", id)
	}

	again, err := db.GetOrCreateCatalogID()
	if err != nil {
		t.Fatalf("Failed to get catalog ID: %v", err)
	}
	if again != id {
		t.Errorf("Catalog ID changed: %s -> %s", id, again)
	}

	stored, err := db.GetCatalogID()
	if err != nil || stored != id {
		t.Errorf("GetCatalogID = %q, %v; want %q", stored, err, id)
	}
}

func TestEntryOperations(t *testing.T) {
	db, _ := openCatalog(t)
	defer db.Close()

	sealed := time.Now().Truncate(time.Second)
	entry := Entry{
		Envelope:       "secret.txt.enc",
		Source:         "secret.txt",
		PlainSize:      11,
		EnvelopeSize:   48,
		EnvelopeDigest: "abc123hash",
		Mode:           0600,
		Sealed:         sealed,
	}

	if err := db.Put(entry); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}

	got, err := db.Get("secret.txt.enc")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if got.Source != "secret.txt" || got.PlainSize != 11 || got.EnvelopeDigest != "abc123hash" {
		t.Errorf("Entry mismatch: %+v", got)
	}
	if !got.Sealed.Equal(sealed) {
		t.Errorf("Sealed time mismatch: got %v, want %v", got.Sealed, sealed)
	}

	// Replace
	entry.EnvelopeDigest = "def456hash"
	if err := db.Put(entry); err != nil {
		t.Fatalf("Failed to replace entry: %v", err)
	}
	got, err = db.Get("secret.txt.enc")
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if got.EnvelopeDigest != "def456hash" {
		t.Errorf("Expected replaced digest, got %s", got.EnvelopeDigest)
	}

	if err := db.Delete("secret.txt.enc"); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if _, err := db.Get("secret.txt.enc"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}

	// Deleting a missing entry is not an error
	if err := db.Delete("secret.txt.enc"); err != nil {
		t.Errorf("Delete of missing entry failed: %v", err)
	}
}

func TestList(t *testing.T) {
	db, _ := openCatalog(t)
	defer db.Close()

	for _, name := range []string{"b.enc", "a.enc", "c/d.enc"} {
		if err := db.Put(Entry{Envelope: name}); err != nil {
			t.Fatalf("Failed to put %s: %v", name, err)
		}
	}

	list, err := db.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	want := []string{"a.enc", "b.enc", "c/d.enc"}
	if len(list) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(list))
	}
	for i, e := range list {
		if e.Envelope != want[i] {
			t.Errorf("Entry %d: got %s, want %s", i, e.Envelope, want[i])
		}
	}
}

func TestModifiedAdvances(t *testing.T) {
	db, _ := openCatalog(t)
	defer db.Close()

	before, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified time: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := db.Put(Entry{Envelope: "x.enc"}); err != nil {
		t.Fatalf("Failed to put entry: %v", err)
	}

	after, err := db.GetModified()
	if err != nil {
		t.Fatalf("Failed to get modified time: %v", err)
	}
	if !after.After(before) {
		t.Errorf("Modified time should advance: %v -> %v", before, after)
	}
}

func TestPersistenceAndCompact(t *testing.T) {
	db, dbPath := openCatalog(t)

	id, err := db.GetOrCreateCatalogID()
	if err != nil {
		t.Fatalf("Failed to create catalog ID: %v", err)
	}
	for _, name := range []string{"a.enc", "b.enc"} {
		if err := db.Put(Entry{Envelope: name, PlainSize: 1}); err != nil {
			t.Fatalf("Failed to put %s: %v", name, err)
		}
	}
	if err := db.Delete("a.enc"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	stored, err := db2.GetCatalogID()
	if err != nil || stored != id {
		t.Errorf("Catalog ID not persisted: got %q, %v", stored, err)
	}

	list, err := db2.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 1 || list[0].Envelope != "b.enc" {
		t.Errorf("Unexpected entries after compact: %+v", list)
	}
}
