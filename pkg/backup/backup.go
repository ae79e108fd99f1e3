// Package backup packages a bot instance's data directory into a timestamped
// tar.gz archive and provides helpers for safely removing data paths.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultExclusions lists path fragments that are never worth archiving:
// regenerable caches, logs and transient working files.
var DefaultExclusions = []string{
	"logs",
	"cache",
	"tmp",
	".git",
}

// manifestName is written into the data directory before archiving so a
// restored backup knows which instance it belongs to.
const manifestName = "instance.json"

// Config describes one backup run
type Config struct {
	// DataDir is the instance data directory to archive.
	DataDir string

	// DestDir receives the archive. Created if absent.
	DestDir string

	// Instance is the bot instance name, used in the archive filename and
	// manifest.
	Instance string

	// Exclusions are path fragments to skip. Defaults to DefaultExclusions
	// when nil.
	Exclusions []string

	// Logger for progress and skip reporting. Defaults to a no-op logger.
	Logger *zap.Logger
}

// manifest is the restore metadata embedded in every archive
type manifest struct {
	Instance  string    `json:"instance"`
	DataPath  string    `json:"data_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Create archives every regular file under cfg.DataDir into
// finch_<instance>_<timestamp>.tar.gz in cfg.DestDir and returns the archive
// path. A manifest file is written into the data directory first so it rides
// along inside the archive.
func Create(ctx context.Context, cfg Config) (string, error) {
	if cfg.DataDir == "" || cfg.Instance == "" {
		return "", fmt.Errorf("backup: data directory and instance name are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Exclusions == nil {
		cfg.Exclusions = DefaultExclusions
	}

	if _, err := os.Stat(cfg.DataDir); err != nil {
		return "", fmt.Errorf("backup: data directory unavailable: %w", err)
	}
	if err := os.MkdirAll(cfg.DestDir, 0o755); err != nil {
		return "", fmt.Errorf("backup: failed to create destination: %w", err)
	}

	now := time.Now().UTC()
	if err := writeManifest(cfg, now); err != nil {
		return "", err
	}

	archivePath := filepath.Join(cfg.DestDir,
		fmt.Sprintf("finch_%s_%s.tar.gz", cfg.Instance, now.Format("2006-01-02T15-04-05")))

	files, err := collectFiles(ctx, cfg)
	if err != nil {
		return "", err
	}

	if err := writeArchive(ctx, archivePath, cfg.DataDir, files); err != nil {
		// Leave no partial archive behind.
		_ = os.Remove(archivePath)
		return "", err
	}

	cfg.Logger.Info("backup created",
		zap.String("instance", cfg.Instance),
		zap.String("archive", archivePath),
		zap.Int("files", len(files)))
	return archivePath, nil
}

func writeManifest(cfg Config, now time.Time) error {
	data, err := json.MarshalIndent(manifest{
		Instance:  cfg.Instance,
		DataPath:  cfg.DataDir,
		CreatedAt: now,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("backup: failed to encode manifest: %w", err)
	}
	path := filepath.Join(cfg.DataDir, manifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("backup: failed to write manifest: %w", err)
	}
	return nil
}

// collectFiles walks the data directory and returns the relative paths of
// every regular file that survives the exclusion list.
func collectFiles(ctx context.Context, cfg Config) ([]string, error) {
	var files []string
	err := filepath.WalkDir(cfg.DataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(cfg.DataDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, cfg.Exclusions) {
			cfg.Logger.Debug("skipping excluded path", zap.String("path", rel))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("backup: failed to scan data directory: %w", err)
	}
	return files, nil
}

// excluded reports whether rel matches any exclusion. An exclusion is a path
// fragment of one or more segments ("cache", "audio/logs") and matches when
// its segments appear contiguously in rel, so "audio/logs" excludes
// "plugins/audio/logs/noise.log" without touching other "logs" directories.
func excluded(rel string, exclusions []string) bool {
	if rel == "." {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, ex := range exclusions {
		if matchesSegments(parts, strings.Split(filepath.ToSlash(ex), "/")) {
			return true
		}
	}
	return false
}

func matchesSegments(parts, fragment []string) bool {
	if len(fragment) == 0 || len(fragment) > len(parts) {
		return false
	}
	for i := 0; i+len(fragment) <= len(parts); i++ {
		match := true
		for j := range fragment {
			if parts[i+j] != fragment[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func writeArchive(ctx context.Context, archivePath, dataDir string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("backup: failed to create archive: %w", err)
	}
	defer func() { _ = out.Close() }()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, rel := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := addFile(tw, dataDir, rel); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("backup: failed to finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("backup: failed to finalize compression: %w", err)
	}
	return out.Close()
}

func addFile(tw *tar.Writer, dataDir, rel string) error {
	path := filepath.Join(dataDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("backup: failed to stat %s: %w", rel, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("backup: failed to build header for %s: %w", rel, err)
	}
	header.Name = rel

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("backup: failed to write header for %s: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backup: failed to open %s: %w", rel, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("backup: failed to archive %s: %w", rel, err)
	}
	return nil
}

// SafeDelete removes path and everything under it, first forcing owner
// permissions on every entry so read-only trees do not survive deletion.
// Deleting a path that does not exist is a no-op.
func SafeDelete(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		_ = os.Chmod(p, 0o700)
		return nil
	})

	return os.RemoveAll(path)
}
