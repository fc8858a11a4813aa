package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ManifestName is the project file looked up by the CLI.
const ManifestName = "vybe.yml"

// Manifest represents the parsed contents of vybe.yml.
type Manifest struct {
	Path         string
	Dir          string
	Name         string
	Version      string
	Startup      string
	Entry        string
	Modules      []string
	Resources    map[string]string
	Handlers     []HandlerBinding
	Dependencies map[string]*DependencySpec

	// entryDefaulted is set when Entry was not given; a missing default
	// Main is then not an error.
	entryDefaulted bool
}

// HandlerBinding is a designer-generated (control, event, handler) triple.
type HandlerBinding struct {
	Control string `yaml:"control"`
	Event   string `yaml:"event"`
	Handler string `yaml:"handler"`
}

// DependencySpec describes where a dependency's modules come from: a local
// path, or a git repository pinned by tag, branch or revision.
type DependencySpec struct {
	Version string `yaml:"version"`
	Git     string `yaml:"git"`
	Tag     string `yaml:"tag"`
	Branch  string `yaml:"branch"`
	Rev     string `yaml:"rev"`
	Path    string `yaml:"path"`
}

// UnmarshalYAML accepts either a mapping or a bare string; a bare string
// is a git URL when it looks like one and a path otherwise.
func (d *DependencySpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if isGitURL(s) {
			d.Git = s
		} else {
			d.Path = s
		}
		return nil
	}
	type plain DependencySpec
	var p plain
	if err := decodeStrict(value, &p); err != nil {
		return err
	}
	*d = DependencySpec(p)
	return nil
}

func decodeStrict(value *yaml.Node, out any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func isGitURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "git@") || strings.HasSuffix(s, ".git")
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// FindManifest walks up from dir to the nearest vybe.yml.
func FindManifest(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(abs, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("manifest: no %s found above %s", ManifestName, dir)
		}
		abs = parent
	}
}

// LoadManifest parses vybe.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

type manifestFile struct {
	Name         string                     `yaml:"name"`
	Version      string                     `yaml:"version"`
	Startup      string                     `yaml:"startup"`
	Entry        string                     `yaml:"entry"`
	Modules      []string                   `yaml:"modules"`
	Resources    map[string]string          `yaml:"resources"`
	Handlers     []HandlerBinding           `yaml:"handlers"`
	Dependencies map[string]*DependencySpec `yaml:"dependencies"`
}

func (mf manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:         path,
		Dir:          filepath.Dir(path),
		Name:         strings.TrimSpace(mf.Name),
		Version:      strings.TrimPrefix(strings.TrimSpace(mf.Version), "v"),
		Startup:      strings.TrimSpace(mf.Startup),
		Entry:        strings.TrimSpace(mf.Entry),
		Resources:    make(map[string]string, len(mf.Resources)),
		Dependencies: make(map[string]*DependencySpec, len(mf.Dependencies)),
	}
	if m.Entry == "" {
		m.Entry = "Main"
		m.entryDefaulted = true
	}
	for _, mod := range mf.Modules {
		if mod = strings.TrimSpace(mod); mod != "" {
			m.Modules = append(m.Modules, filepath.FromSlash(mod))
		}
	}
	for key, val := range mf.Resources {
		m.Resources[strings.TrimSpace(key)] = val
	}
	for _, h := range mf.Handlers {
		m.Handlers = append(m.Handlers, HandlerBinding{
			Control: strings.TrimSpace(h.Control),
			Event:   strings.TrimSpace(h.Event),
			Handler: strings.TrimSpace(h.Handler),
		})
	}
	for name, dep := range mf.Dependencies {
		if dep == nil {
			m.Dependencies[strings.TrimSpace(name)] = nil
			continue
		}
		clone := *dep
		clone.Version = strings.TrimSpace(clone.Version)
		clone.Git = strings.TrimSpace(clone.Git)
		clone.Tag = strings.TrimSpace(clone.Tag)
		clone.Branch = strings.TrimSpace(clone.Branch)
		clone.Rev = strings.TrimSpace(clone.Rev)
		clone.Path = strings.TrimSpace(clone.Path)
		m.Dependencies[strings.TrimSpace(name)] = &clone
	}
	return m
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Version != "" && !semver.IsValid("v"+m.Version) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("version %q is not a semantic version", m.Version))
	}
	if len(m.Modules) == 0 {
		errs.Issues = append(errs.Issues, "modules must list at least one source file")
	}
	seen := make(map[string]string, len(m.Modules))
	for _, mod := range m.Modules {
		name := ModuleName(mod)
		if other, ok := seen[strings.ToLower(name)]; ok {
			errs.Issues = append(errs.Issues, fmt.Sprintf("modules %q and %q share the module name %q", other, mod, name))
			continue
		}
		seen[strings.ToLower(name)] = mod
	}
	for idx, h := range m.Handlers {
		if h.Control == "" || h.Event == "" || h.Handler == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("handlers[%d] needs control, event and handler", idx))
		}
	}
	for _, name := range m.DependencyNames() {
		dep := m.Dependencies[name]
		if name == "" {
			errs.Issues = append(errs.Issues, "dependencies must not use empty keys")
			continue
		}
		if dep == nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: must specify git or path", name))
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) validate() []string {
	var errs []string
	if d.Path != "" && d.Git != "" {
		errs = append(errs, "path dependencies cannot also specify git")
	}
	if d.Path == "" && d.Git == "" {
		errs = append(errs, "must specify git or path")
	}
	pins := 0
	for _, pin := range []string{d.Tag, d.Branch, d.Rev} {
		if pin != "" {
			pins++
		}
	}
	if pins > 1 {
		errs = append(errs, "only one of tag, branch or rev may be set")
	}
	if pins > 0 && d.Git == "" {
		errs = append(errs, "tag, branch and rev apply only to git dependencies")
	}
	if d.Tag != "" && !semver.IsValid(canonicalTag(d.Tag)) {
		errs = append(errs, fmt.Sprintf("tag %q is not a semantic version", d.Tag))
	}
	if d.Version != "" && !semver.IsValid(canonicalTag(d.Version)) {
		errs = append(errs, fmt.Sprintf("invalid version %q", d.Version))
	}
	return errs
}

func canonicalTag(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// DependencyNames lists dependency keys in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModulePaths resolves the manifest's module files against its directory.
func (m *Manifest) ModulePaths() []string {
	out := make([]string, len(m.Modules))
	for idx, mod := range m.Modules {
		if filepath.IsAbs(mod) {
			out[idx] = mod
		} else {
			out[idx] = filepath.Join(m.Dir, mod)
		}
	}
	return out
}

// ModuleName is the module a source file registers as: its base name
// without extension.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
