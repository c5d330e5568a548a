package layer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mpa-survey/internal/failure"
)

// readZippedShapefile extracts a shapefile archive and loads the first .shp
// it contains. The layer keeps the archive path for reporting.
func readZippedShapefile(zipPath string, opts Options) (*Layer, error) {
	dir, err := os.MkdirTemp(opts.TempDir, "mpa-layer-*")
	if err != nil {
		return nil, failure.NewLoadError(zipPath, eris.Wrap(err, "layer: create extract dir"))
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := extractZIP(zipPath, dir); err != nil {
		return nil, failure.NewLoadError(zipPath, eris.Wrap(err, "layer: extract archive"))
	}

	shpPath, err := findFileByExt(dir, ".shp")
	if err != nil {
		return nil, failure.NewLoadError(zipPath, eris.Wrap(err, "layer: find .shp in archive"))
	}

	l, err := ReadShapefile(shpPath, opts.Encoding)
	if err != nil {
		return nil, err
	}
	l.Path = zipPath
	return l, nil
}

// extractZIP flattens a ZIP archive into destDir.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if name == "." || name == ".." || strings.HasPrefix(name, "._") {
			continue
		}
		if err := extractEntry(f, filepath.Join(destDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "open zip entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return eris.Wrapf(err, "create %s", destPath)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "extract %s", f.Name)
	}
	return eris.Wrapf(out.Close(), "close %s", destPath)
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
