package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"vybe/interpreter-go/pkg/driver"
)

func (c *cli) runDeps(args []string) int {
	if len(args) < 1 || len(args) > 2 || (args[0] != "install" && args[0] != "update") {
		fmt.Fprintln(c.stderr, "usage: vybe deps install|update [project-dir]")
		return 1
	}
	dir := "."
	if len(args) == 2 {
		dir = args[1]
	}
	manifestPath, err := driver.FindManifest(dir)
	if err != nil {
		return c.reportError(err)
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return c.reportError(err)
	}
	lockPath := filepath.Join(manifest.Dir, driver.LockfileName)
	lock, err := driver.LoadLockfile(lockPath)
	if errors.Is(err, fs.ErrNotExist) {
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
	} else if err != nil {
		return c.reportError(err)
	}

	installer := newDependencyInstaller(driver.NewLoader(c.cfg.Home, c.cfg.SearchPaths, c.logger()), c.logger())
	changed, err := installer.Install(manifest, lock, args[0] == "update")
	if err != nil {
		return c.reportError(err)
	}
	if changed {
		lock.Tool = cliToolVersion
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			return c.reportError(err)
		}
	}
	for _, pkg := range lock.Packages {
		fmt.Fprintf(c.stdout, "%s %s %s\n", pkg.Name, shortRevision(pkg.Revision), pkg.Source)
	}
	return 0
}

// dependencyInstaller checks out git dependencies under the loader's home
// and records the resolved commits in the lockfile.
type dependencyInstaller struct {
	loader *driver.Loader
	log    *slog.Logger
	seen   map[string]bool
}

func newDependencyInstaller(loader *driver.Loader, log *slog.Logger) *dependencyInstaller {
	return &dependencyInstaller{loader: loader, log: log, seen: map[string]bool{}}
}

// Install fetches every git dependency of m, transitively. Locked
// revisions are reused unless update is set. The result reports whether
// the lockfile changed.
func (d *dependencyInstaller) Install(m *driver.Manifest, lock *driver.Lockfile, update bool) (bool, error) {
	changed := false
	for _, name := range m.DependencyNames() {
		if d.seen[name] {
			continue
		}
		d.seen[name] = true
		spec := m.Dependencies[name]
		dir := d.loader.DependencyDir(m, name)
		if spec.Git != "" {
			locked := lock.Find(name)
			revision, label := gitRevision(spec)
			if !update && locked != nil && locked.Source == spec.Git && locked.Version == label && locked.Revision != "" {
				revision = plumbing.Revision(locked.Revision)
			}
			commit, err := ensureCheckout(dir, spec.Git, revision, !update || spec.Rev != "")
			if err != nil {
				return changed, fmt.Errorf("dependency %s: %w", name, err)
			}
			d.log.Debug("dependency checked out", "name", name, "commit", commit, "dir", dir)
			entry := &driver.LockedPackage{Name: name, Source: spec.Git, Revision: commit, Version: label}
			if locked == nil || locked.Source != entry.Source || locked.Revision != entry.Revision || locked.Version != entry.Version {
				lock.Put(entry)
				changed = true
			}
		}
		depManifest, err := driver.LoadManifest(filepath.Join(dir, driver.ManifestName))
		if err != nil {
			return changed, fmt.Errorf("dependency %s: %w", name, err)
		}
		nested, err := d.Install(depManifest, lock, update)
		changed = changed || nested
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// gitRevision picks the revision a spec pins, with a label for the lockfile.
func gitRevision(spec *driver.DependencySpec) (plumbing.Revision, string) {
	switch {
	case spec.Rev != "":
		return plumbing.Revision(spec.Rev), ""
	case spec.Tag != "":
		return plumbing.Revision("refs/tags/" + spec.Tag), spec.Tag
	case spec.Branch != "":
		return plumbing.Revision("refs/remotes/origin/" + spec.Branch), spec.Branch
	}
	return plumbing.Revision("HEAD"), ""
}

// ensureCheckout leaves dir holding url at revision and returns the commit
// hash. With reuse, an existing checkout already at that commit is kept.
func ensureCheckout(dir, url string, revision plumbing.Revision, reuse bool) (string, error) {
	if repo, err := git.PlainOpen(dir); reuse && err == nil {
		if hash, err := repo.ResolveRevision(revision); err == nil {
			if head, err := repo.Head(); err == nil && head.Hash() == *hash {
				return hash.String(), nil
			}
		}
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", err
	}
	tmpDir, err := os.MkdirTemp(parent, "git-fetch-*")
	if err != nil {
		return "", err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL:  url,
		Tags: git.AllTags,
	})
	if err != nil {
		cleanup()
		return "", fmt.Errorf("git clone %s: %w", url, err)
	}
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		cleanup()
		return "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		cleanup()
		return "", fmt.Errorf("git checkout %s: %w", revision, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		cleanup()
		return "", err
	}
	return hash.String(), nil
}

func shortRevision(rev string) string {
	rev = strings.TrimSpace(rev)
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
