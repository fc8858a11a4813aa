package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/interpreter"
	"vybe/interpreter-go/pkg/parser"
	"vybe/interpreter-go/pkg/runtime"
)

// Module is one parsed source file.
type Module struct {
	Name    string
	Path    string
	Origin  string
	Program *ast.Program
}

// Project is a manifest with its modules parsed and ordered for loading:
// dependency modules first, then the project's own in manifest order.
type Project struct {
	Manifest *Manifest
	Modules  []*Module
}

// Loader resolves and parses the modules of a project.
type Loader struct {
	// Home holds installed git dependencies under deps/<name>.
	Home        string
	// SearchPaths are tried, in order, for module files missing from the
	// manifest directory.
	SearchPaths []string
	Logger      *slog.Logger
}

// NewLoader constructs a loader. Empty search paths are dropped.
func NewLoader(home string, searchPaths []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	paths := make([]string, 0, len(searchPaths))
	for _, sp := range searchPaths {
		if sp = strings.TrimSpace(sp); sp != "" {
			paths = append(paths, sp)
		}
	}
	return &Loader{Home: home, SearchPaths: paths, Logger: logger}
}

// DependencyDir is where a dependency's sources live on disk.
func (l *Loader) DependencyDir(m *Manifest, name string) string {
	dep := m.Dependencies[name]
	if dep != nil && dep.Path != "" {
		if filepath.IsAbs(dep.Path) {
			return dep.Path
		}
		return filepath.Join(m.Dir, dep.Path)
	}
	return filepath.Join(l.Home, "deps", sanitizeSegment(name))
}

type pendingModule struct {
	path   string
	origin string
}

// Load resolves every module of the manifest and its dependencies, then
// parses them concurrently.
func (l *Loader) Load(ctx context.Context, m *Manifest) (*Project, error) {
	if m == nil {
		return nil, fmt.Errorf("loader: nil manifest")
	}
	var pending []pendingModule
	visiting, done := map[string]bool{}, map[string]bool{}
	if err := l.collect(m, m.Name, visiting, done, &pending); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(pending))
	for _, p := range pending {
		key := strings.ToLower(ModuleName(p.path))
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("loader: module %q defined by both %s and %s", ModuleName(p.path), other, p.path)
		}
		seen[key] = p.path
	}

	modules, err := l.parseAll(ctx, pending)
	if err != nil {
		return nil, err
	}
	return &Project{Manifest: m, Modules: modules}, nil
}

// collect appends m's modules after those of its dependencies. A package
// reached twice (a shared dependency) contributes its modules once.
func (l *Loader) collect(m *Manifest, origin string, visiting, done map[string]bool, out *[]pendingModule) error {
	key := filepath.Clean(m.Dir)
	if done[key] {
		return nil
	}
	if visiting[key] {
		return fmt.Errorf("loader: dependency cycle through %s", m.Path)
	}
	visiting[key] = true
	defer delete(visiting, key)

	for _, name := range m.DependencyNames() {
		dir := l.DependencyDir(m, name)
		depManifest, err := LoadManifest(filepath.Join(dir, ManifestName))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && m.Dependencies[name].Git != "" {
				return fmt.Errorf("loader: dependency %s is not installed (run `vybe deps install`)", name)
			}
			return fmt.Errorf("loader: dependency %s: %w", name, err)
		}
		l.Logger.Debug("dependency resolved", "name", name, "dir", dir)
		if err := l.collect(depManifest, name, visiting, done, out); err != nil {
			return err
		}
	}
	for _, mod := range m.Modules {
		path, err := l.resolveModule(m.Dir, mod)
		if err != nil {
			return err
		}
		*out = append(*out, pendingModule{path: path, origin: origin})
	}
	done[key] = true
	return nil
}

func (l *Loader) resolveModule(dir, mod string) (string, error) {
	if filepath.IsAbs(mod) {
		return mod, nil
	}
	candidates := append([]string{dir}, l.SearchPaths...)
	for _, root := range candidates {
		path := filepath.Join(root, mod)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("loader: module %s not found in %s", mod, strings.Join(candidates, string(os.PathListSeparator)))
}

func (l *Loader) parseAll(ctx context.Context, pending []pendingModule) ([]*Module, error) {
	modules := make([]*Module, len(pending))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.GOMAXPROCS(0))
	for idx, p := range pending {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mod, err := ParseFile(p.path)
			if err != nil {
				return err
			}
			mod.Origin = p.origin
			modules[idx] = mod
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return modules, nil
}

// SourceError ties a parse failure to the file it came from.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ParseFile reads and parses one source file as a module named after the
// file.
func ParseFile(path string) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	program, err := parser.ParseProgram(string(src))
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return &Module{Name: ModuleName(path), Path: path, Program: program}, nil
}

// LoadFile builds a single-module project around one source file.
func LoadFile(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve %s: %w", path, err)
	}
	mod, err := ParseFile(abs)
	if err != nil {
		return nil, err
	}
	mod.Origin = mod.Name
	manifest := &Manifest{
		Path:           abs,
		Dir:            filepath.Dir(abs),
		Name:           mod.Name,
		Entry:          "Main",
		Modules:        []string{filepath.Base(abs)},
		Resources:      map[string]string{},
		Dependencies:   map[string]*DependencySpec{},
		entryDefaulted: true,
	}
	return &Project{Manifest: manifest, Modules: []*Module{mod}}, nil
}

// Apply loads every module into interp in order, then registers the
// manifest's resources and designer handler bindings.
func (p *Project) Apply(interp *interpreter.Interpreter) error {
	for _, mod := range p.Modules {
		if err := interp.LoadModule(mod.Name, mod.Program); err != nil {
			return fmt.Errorf("load %s: %w", mod.Name, err)
		}
	}
	if len(p.Manifest.Resources) > 0 {
		interp.RegisterResources(p.Manifest.Resources)
	}
	for _, h := range p.Manifest.Handlers {
		interp.BindHandler(h.Control, h.Event, h.Handler)
	}
	return nil
}

// Start runs the project. A startup form is handed to Application.Run and
// sent its Load event; otherwise the Entry procedure is called.
func (p *Project) Start(interp *interpreter.Interpreter) error {
	if form := p.Manifest.Startup; form != "" {
		expr, err := parser.ParseExpression("Application.Run(" + form + ")")
		if err != nil {
			return fmt.Errorf("startup %s: %w", form, err)
		}
		if _, err := interp.EvaluateExpression(expr); err != nil {
			return err
		}
		return interp.DispatchEvent(form, "Load", nil)
	}
	_, err := interp.CallProcedure(p.Manifest.Entry, nil)
	var rerr *runtime.Error
	if p.Manifest.entryDefaulted && errors.As(err, &rerr) && rerr.Kind == runtime.ErrUndefinedFunction && strings.EqualFold(rerr.Name, p.Manifest.Entry) {
		return nil
	}
	return err
}
