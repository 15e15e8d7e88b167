package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ksc/internal/buildpipeline"
)

// collectTreeFiles expands the command line into tree files. Directories
// are walked; with no arguments the project root is. outDir is never
// descended into.
func collectTreeFiles(args []string, root, outDir string) ([]string, error) {
	if len(args) == 0 {
		args = []string{root}
	}
	var files []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !st.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := listTreeFiles(arg, outDir)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, buildpipeline.ErrNoInput
	}
	sort.Strings(files)
	return files, nil
}

func listTreeFiles(dir, outDir string) ([]string, error) {
	skip := ""
	if outDir != "" {
		if abs, err := filepath.Abs(outDir); err == nil {
			skip = abs
		}
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if len(name) > 1 && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if abs, absErr := filepath.Abs(path); absErr == nil && abs == skip {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, buildpipeline.TreeSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
