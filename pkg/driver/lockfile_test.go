package driver

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockfileName)

	lock := NewLockfile("Inventory App", "vybe test")
	lock.Put(&LockedPackage{Name: "widgets", Source: "https://example.com/widgets.git", Revision: "abc123", Version: "v1.0.0"})
	lock.Put(&LockedPackage{Name: "Reports", Source: " https://example.com/reports.git ", Revision: "def456"})
	lock.Put(&LockedPackage{Name: "widgets", Source: "https://example.com/widgets.git", Revision: "fff000", Version: "v1.1.0"})

	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if loaded.Root != "inventory_app" || loaded.Tool != "vybe test" {
		t.Fatalf("unexpected metadata root=%q tool=%q", loaded.Root, loaded.Tool)
	}
	want := []*LockedPackage{
		{Name: "reports", Source: "https://example.com/reports.git", Revision: "def456"},
		{Name: "widgets", Source: "https://example.com/widgets.git", Revision: "fff000", Version: "v1.1.0"},
	}
	if diff := cmp.Diff(want, loaded.Packages); diff != "" {
		t.Fatalf("packages mismatch (-want +got):\n%s", diff)
	}
	if got := loaded.Find("Widgets"); got == nil || got.Revision != "fff000" {
		t.Fatalf("Find(Widgets) = %+v", got)
	}
	if got := loaded.Find("missing"); got != nil {
		t.Fatalf("expected no entry, got %+v", got)
	}
}

func TestWriteLockfileRequiresPath(t *testing.T) {
	if err := WriteLockfile(NewLockfile("app", ""), ""); err == nil {
		t.Fatalf("expected an error without a path")
	}
	if err := WriteLockfile(nil, "x.lock"); err == nil {
		t.Fatalf("expected an error for a nil lockfile")
	}
}
