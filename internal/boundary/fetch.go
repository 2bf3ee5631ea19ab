package boundary

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetch makes the source available under dataDir and returns the path of its
// boundary file. Sources already on disk are not downloaded again.
func Fetch(ctx context.Context, client *http.Client, dataDir string, src Source) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	log := zap.L().With(zap.String("component", "boundary.fetch"), zap.String("source", src.Name))

	dir := filepath.Join(dataDir, src.Dir)
	target := filepath.Join(dir, filepath.FromSlash(src.Path))

	if src.Archive {
		if _, err := os.Stat(dir); err == nil {
			log.Debug("boundary: archive already extracted", zap.String("dir", dir))
			return target, nil
		}
	} else if _, err := os.Stat(target); err == nil {
		log.Debug("boundary: file already downloaded", zap.String("path", target))
		return target, nil
	}

	if src.URL == "" {
		return "", eris.Errorf("boundary: %s is missing and has no url", target)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create data dir")
	}

	if !src.Archive {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", eris.Wrap(err, "boundary: create source dir")
		}
		log.Info("downloading boundary file", zap.String("url", src.URL))
		if err := downloadFile(ctx, client, src.URL, target); err != nil {
			_ = os.Remove(target)
			return "", eris.Wrapf(err, "boundary: download %s", src.Name)
		}
		return target, nil
	}

	tmp, err := os.CreateTemp(dataDir, src.Dir+"-*.zip")
	if err != nil {
		return "", eris.Wrap(err, "boundary: create temp archive")
	}
	zipPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(zipPath) //nolint:errcheck

	log.Info("downloading boundary archive", zap.String("url", src.URL))
	if err := downloadFile(ctx, client, src.URL, zipPath); err != nil {
		return "", eris.Wrapf(err, "boundary: download %s", src.Name)
	}
	if err := extractZIP(zipPath, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", eris.Wrapf(err, "boundary: extract %s", src.Name)
	}
	return target, nil
}

// downloadFile downloads a URL to a local file.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, resp.Body); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}

// extractZIP extracts a ZIP archive below destDir, keeping the archive's
// directory structure. Entries that would escape destDir are rejected.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, f := range r.File {
		destPath := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(destPath, root) {
			return eris.Errorf("zip entry %s escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return eris.Wrapf(err, "create %s", destPath)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return eris.Wrapf(err, "create %s", filepath.Dir(destPath))
		}
		if err := extractEntry(f, destPath); err != nil {
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
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return eris.Wrapf(err, "extract %s", f.Name)
	}
	return nil
}
