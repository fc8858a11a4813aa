package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/driver"
)

// initGitRepo commits every file under dir and returns the commit hash.
func initGitRepo(t *testing.T, dir string) (*git.Repository, string) {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return repo, commitAll(t, repo, dir, "init")
}

func commitAll(t *testing.T, repo *git.Repository, dir, message string) string {
	t.Helper()
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(filepath.ToSlash(rel))
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Vybe CLI",
			Email: "vybe@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func TestDepsInstallClonesGitDependency(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "mathlib")
	writeFile(t, filepath.Join(repoDir, "vybe.yml"), "name: mathlib\nversion: 1.0.0\nmodules: [MathLib.vb]\n")
	writeFile(t, filepath.Join(repoDir, "MathLib.vb"), "Function Twice(n As Integer) As Integer\n    Return n * 2\nEnd Function\n")
	repo, first := initGitRepo(t, repoDir)
	if _, err := repo.CreateTag("v1.0.0", mustHash(t, repo, first), nil); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	writeFile(t, filepath.Join(repoDir, "MathLib.vb"), "Function Twice(n As Integer) As Integer\n    Return n + n + 1000\nEnd Function\n")
	commitAll(t, repo, repoDir, "later")

	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "vybe.yml"), `
name: app
modules: [Main.vb]
dependencies:
  mathlib:
    git: `+repoDir+`
    tag: v1.0.0
`)
	writeFile(t, filepath.Join(app, "Main.vb"), "Sub Main()\n    Console.WriteLine(Twice(21))\nEnd Sub\n")

	c, stdout, stderr := newTestCLI(t, "")
	if code := c.run([]string{"deps", "install", app}); code != 0 {
		t.Fatalf("deps install exited %d: %s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "mathlib "+first[:12]+" ") {
		t.Fatalf("unexpected deps output %q", stdout.String())
	}

	lock, err := driver.LoadLockfile(filepath.Join(app, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	want := []*driver.LockedPackage{{Name: "mathlib", Source: repoDir, Revision: first, Version: "v1.0.0"}}
	if diff := cmp.Diff(want, lock.Packages); diff != "" {
		t.Fatalf("lock mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(c.cfg.Home, "deps", "mathlib", "MathLib.vb")); err != nil {
		t.Fatalf("expected checkout under VYBE_HOME: %v", err)
	}

	stdout.Reset()
	if code := c.run([]string{"run", app}); code != 0 {
		t.Fatalf("run exited %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "42\n" {
		t.Fatalf("expected the tagged revision's output, got %q", got)
	}
}

func TestDepsInstallHonoursLockedRevision(t *testing.T) {
	root := t.TempDir()
	repoDir := filepath.Join(root, "lib")
	writeFile(t, filepath.Join(repoDir, "vybe.yml"), "name: lib\nmodules: [Lib.vb]\n")
	writeFile(t, filepath.Join(repoDir, "Lib.vb"), "Const Edition = \"first\"\n")
	repo, first := initGitRepo(t, repoDir)

	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "vybe.yml"), "name: app\nmodules: [Main.vb]\ndependencies:\n  lib:\n    git: "+repoDir+"\n")
	writeFile(t, filepath.Join(app, "Main.vb"), "Sub Main()\nEnd Sub\n")

	c, _, stderr := newTestCLI(t, "")
	if code := c.run([]string{"deps", "install", app}); code != 0 {
		t.Fatalf("deps install exited %d: %s", code, stderr.String())
	}

	writeFile(t, filepath.Join(repoDir, "Lib.vb"), "Const Edition = \"second\"\n")
	second := commitAll(t, repo, repoDir, "second")

	lockPath := filepath.Join(app, driver.LockfileName)
	if code := c.run([]string{"deps", "install", app}); code != 0 {
		t.Fatalf("second install exited %d: %s", code, stderr.String())
	}
	if lock, err := driver.LoadLockfile(lockPath); err != nil || lock.Find("lib").Revision != first {
		t.Fatalf("install should keep the locked revision %s, got %+v (%v)", first, lock, err)
	}

	if code := c.run([]string{"deps", "update", app}); code != 0 {
		t.Fatalf("deps update exited %d: %s", code, stderr.String())
	}
	if lock, err := driver.LoadLockfile(lockPath); err != nil || lock.Find("lib").Revision != second {
		t.Fatalf("update should move to %s, got %+v (%v)", second, lock, err)
	}
}

func TestDepsRequiresSubcommand(t *testing.T) {
	if got := runCLI(t, "deps"); got.code != 1 || !strings.Contains(got.stderr, "usage: vybe deps") {
		t.Fatalf("unexpected result %+v", got)
	}
}

func mustHash(t *testing.T, repo *git.Repository, rev string) plumbing.Hash {
	t.Helper()
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		t.Fatalf("ResolveRevision %s: %v", rev, err)
	}
	return *hash
}
