package registry

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ExtractCSVs unpacks the CSV members of a ZIP archive into destDir and
// returns their paths in archive order. macOS resource-fork entries ("._*")
// are skipped.
func ExtractCSVs(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(f.Name)
		if strings.HasPrefix(base, "._") || !strings.EqualFold(path.Ext(base), ".csv") {
			continue
		}

		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry %q escapes destination", f.Name)
		}
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
		out = append(out, target)
	}

	return out, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, rc); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return dst.Close()
}
