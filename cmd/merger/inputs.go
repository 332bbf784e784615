package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"living-population/internal/services"
)

var inputExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// collectInputs expands directories into the data files directly inside
// them and reads every file. Explicit file arguments are taken as given.
// Each file is named by its path as addressed on the command line, so files
// sharing a base name in different directories stay distinct.
func collectInputs(paths []string) ([]services.InputFile, error) {
	var names []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			names = append(names, filepath.Clean(p))
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() || !inputExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			names = append(names, filepath.Join(p, e.Name()))
		}
	}

	sort.Strings(names)
	files := make([]services.InputFile, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		content, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		files = append(files, services.InputFile{Name: name, Content: content})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no input files found in %s", strings.Join(paths, ", "))
	}
	return files, nil
}
