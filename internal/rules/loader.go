package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

const builtinDir = "builtin"

func isRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoadDir loads and validates every rule file in dir, sorted by file name.
func LoadDir(dir string) ([]*SpecFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("rule spec directory not found: %s", dir)
		}
		return nil, fmt.Errorf("unable to read rule spec directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("rule spec path %q is not a directory", dir)
	}
	return loadFS(os.DirFS(dir), ".", func(name string) string { return filepath.Join(dir, name) })
}

// LoadBuiltIn loads the rules shipped inside the binary.
func LoadBuiltIn() ([]*SpecFile, error) {
	specs, err := loadFS(builtinFS, builtinDir, func(string) string { return "" })
	if err != nil {
		return nil, fmt.Errorf("built-in rules: %w", err)
	}
	return specs, nil
}

func loadFS(fsys fs.FS, dir string, source func(name string) string) ([]*SpecFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isRuleFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	specs := make([]*SpecFile, 0, len(names))
	for _, name := range names {
		f, err := fsys.Open(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		spec, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		spec.Source = source(name)
		if err := Validate(spec); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadAll loads the built-in rules followed by the rules in userDir.
// A user rule replaces a built-in with the same ID. An empty or missing
// userDir yields the built-ins only.
func LoadAll(userDir string) ([]*SpecFile, error) {
	builtin, err := LoadBuiltIn()
	if err != nil {
		return nil, err
	}
	if userDir == "" {
		return builtin, nil
	}
	if _, err := os.Stat(userDir); os.IsNotExist(err) {
		return builtin, nil
	}

	user, err := LoadDir(userDir)
	if err != nil {
		return nil, err
	}
	return Merge(builtin, user), nil
}

// Merge concatenates spec lists; a later spec replaces an earlier one
// with the same ID at the earlier one's position.
func Merge(lists ...[]*SpecFile) []*SpecFile {
	var merged []*SpecFile
	pos := map[string]int{}
	for _, list := range lists {
		for _, s := range list {
			if i, ok := pos[s.Rule.ID]; ok {
				merged[i] = s
				continue
			}
			pos[s.Rule.ID] = len(merged)
			merged = append(merged, s)
		}
	}
	return merged
}
