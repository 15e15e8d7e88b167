package buildpipeline

import (
	"path/filepath"
	"sort"
	"strings"
)

// TreeSuffix is the extension of typed tree files.
const TreeSuffix = ".kst.json"

// SourceSuffix is the extension of the shader a tree was parsed from.
const SourceSuffix = ".ksl"

// DisplayFiles returns the paths progress events will carry for files.
func DisplayFiles(files []string, baseDir string) []string {
	return normalizeFiles(files, baseDir)
}

// normalizeFiles cleans, deduplicates and sorts paths, making them
// relative to baseDir where they lie below it.
func normalizeFiles(files []string, baseDir string) []string {
	if len(files) == 0 {
		return files
	}
	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	out := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		if file == "" {
			continue
		}
		path := displayPath(file, base)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func displayPath(file, base string) string {
	path := filepath.Clean(file)
	if base != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if rel, err := filepath.Rel(base, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}

// resolvePath turns a display path back into one usable from the working
// directory.
func resolvePath(display, baseDir string) string {
	p := filepath.FromSlash(display)
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// sourceFor names the shader next to a tree file: a.kst.json -> a.ksl.
func sourceFor(tree string) string {
	return strings.TrimSuffix(tree, TreeSuffix) + SourceSuffix
}

// unitName is the default module name of a tree file.
func unitName(tree string) string {
	base := filepath.Base(tree)
	base = strings.TrimSuffix(base, TreeSuffix)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
