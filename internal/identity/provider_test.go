package identity

import (
	"path/filepath"
	"testing"

	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGetOrCreateStable(t *testing.T) {
	db := testDB(t)
	p := NewProvider(db, zap.NewNop())

	first, err := p.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if len(first) != Length {
		t.Errorf("identity length = %d, want %d", len(first), Length)
	}
	if err := chat.ValidateIdentity(first); err != nil {
		t.Errorf("generated identity invalid: %v", err)
	}

	// Second call must return the persisted value without recomputation.
	second, err := p.GetOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Errorf("second call = %q, want %q", second, first)
	}

	// A fresh provider over the same store sees the same identity.
	p2 := NewProvider(db, zap.NewNop())
	third, err := p2.GetOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if third != first {
		t.Errorf("new provider = %q, want %q", third, first)
	}
}

func TestFormat(t *testing.T) {
	got := format("some-seed")
	if len(got) != Length {
		t.Errorf("format length = %d, want %d", len(got), Length)
	}
	if got != format("some-seed") {
		t.Error("format is not deterministic")
	}
	if got == format("other-seed") {
		t.Error("different seeds produced the same identity")
	}
	if err := chat.ValidateIdentity(got); err != nil {
		t.Errorf("formatted identity invalid: %v", err)
	}
}

func TestDeriveFallback(t *testing.T) {
	// derive may or may not find fingerprint sources on the test host, but
	// the result must always be a valid identity.
	id, _ := derive()
	if err := chat.ValidateIdentity(id); err != nil {
		t.Errorf("derived identity invalid: %v", err)
	}
}
