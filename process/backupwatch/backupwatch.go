// Package backupwatch imports backup files dropped into a directory. Each
// file is handed to an Importer and then moved to done/ or failed/.
package backupwatch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"banksampah/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

const (
	DoneDir   = "done"
	FailedDir = "failed"
)

// settle is how long a file must go without write events before it is
// picked up; large backups are often written in several chunks.
var settle = 500 * time.Millisecond

// Importer restores one backup file.
type Importer func(ctx context.Context, path string) error

func isBackup(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json") && !strings.HasPrefix(name, ".")
}

// Pending lists backup files currently waiting in dir, oldest name first.
func Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isBackup(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Scan imports every backup already present in dir, one at a time.
// It returns how many files were imported successfully.
func Scan(ctx context.Context, dir string, imp Importer) (int, error) {
	names, err := Pending(dir)
	if err != nil {
		return 0, err
	}
	ok := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return ok, ctx.Err()
		}
		if process(ctx, dir, name, imp) {
			ok++
		}
	}
	return ok, nil
}

// Watch scans dir once, then imports new backups as they appear until ctx
// is cancelled. Imports run sequentially; each one replaces the dataset.
func Watch(ctx context.Context, dir string, imp Importer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	if _, err := Scan(ctx, dir, imp); err != nil {
		return err
	}
	logger.Log.Info("watching for backups", logger.String("dir", dir))

	pending := map[string]time.Time{}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !isBackup(name) {
				continue
			}
			pending[name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			ready := make([]string, 0, len(pending))
			for name, t := range pending {
				if now.Sub(t) >= settle {
					ready = append(ready, name)
				}
			}
			sort.Strings(ready)
			for _, name := range ready {
				delete(pending, name)
				if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
					continue
				}
				process(ctx, dir, name, imp)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Log.Warn("watch error", logger.Error(err))
		}
	}
}

func process(ctx context.Context, dir, name string, imp Importer) bool {
	full := filepath.Join(dir, name)
	err := imp(ctx, full)
	dest := DoneDir
	if err != nil {
		dest = FailedDir
		logger.Log.Error("backup import failed", logger.String("file", name), logger.Error(err))
	} else {
		logger.Log.Info("backup imported", logger.String("file", name))
	}
	if err := moveInto(full, filepath.Join(dir, dest)); err != nil {
		logger.Log.Warn("failed to move backup", logger.String("file", name), logger.Error(err))
	}
	return err == nil
}

// moveInto moves src into dir, replacing a file of the same name. Rename is
// tried first with copy+remove as fallback across filesystems.
func moveInto(src, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
