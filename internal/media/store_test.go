package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgerrors "github.com/oldphonedeals/backend/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSaveAndRemove(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("iphone6.jpeg", strings.NewReader("not really a jpeg"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if name != "iphone6.jpeg" {
		t.Fatalf("unexpected stored name %q", name)
	}
	if !store.Exists(name) {
		t.Fatal("expected file on disk")
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "not really a jpeg" {
		t.Fatalf("unexpected contents %q", data)
	}

	if err := store.Remove(name); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Exists(name) {
		t.Fatal("expected file gone")
	}
	// Removing twice is fine.
	if err := store.Remove(name); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestSaveStripsPathComponents(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("../../etc/passwd.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if name != "passwd.png" {
		t.Fatalf("expected base name only, got %q", name)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), "passwd.png")); err != nil {
		t.Fatalf("expected file inside the store dir: %v", err)
	}
}

func TestSaveRejectsUnsupportedExtensions(t *testing.T) {
	store := newTestStore(t)

	cases := []string{"malware.exe", "page.html", "noext", ""}
	for _, name := range cases {
		_, err := store.Save(name, strings.NewReader("x"))
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q, got %v", name, err)
		}
	}
}
