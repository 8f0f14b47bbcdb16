package skills

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher loads bundles that are installed into plugin directories while the
// process is running.
type Watcher struct {
	loader  *Loader
	dirs    map[string]bool
	watcher *fsnotify.Watcher
	log     *logrus.Logger
}

// NewWatcher watches dirs and their existing bundle subdirectories. Missing
// directories are skipped.
func NewWatcher(loader *Loader, dirs []string, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		loader:  loader,
		dirs:    make(map[string]bool),
		watcher: fw,
		log:     log,
	}

	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			log.Debugf("Plugin directory does not exist: %s", dir)
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
		w.dirs[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warnf("Failed to read plugin directory %s: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				w.watchBundleDir(filepath.Join(dir, entry.Name()))
			}
		}
	}

	return w, nil
}

// Run processes file system events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Plugin watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	parent := filepath.Dir(ev.Name)

	if w.dirs[parent] {
		info, err := os.Stat(ev.Name)
		if err != nil || !info.IsDir() {
			return
		}
		w.watchBundleDir(ev.Name)
		if _, err := os.Stat(filepath.Join(ev.Name, ManifestFile)); err == nil {
			w.load(ctx, filepath.Base(ev.Name))
		}
		return
	}

	if filepath.Base(ev.Name) == ManifestFile && w.dirs[filepath.Dir(parent)] {
		w.load(ctx, filepath.Base(parent))
	}
}

func (w *Watcher) watchBundleDir(path string) {
	if err := w.watcher.Add(path); err != nil {
		w.log.Warnf("Failed to watch bundle directory %s: %v", path, err)
	}
}

func (w *Watcher) load(ctx context.Context, name string) {
	ids, err := w.loader.LoadInstalledBundle(ctx, name)
	if err != nil {
		w.log.WithError(err).WithField("bundle", name).Error("Failed to load installed bundle")
		return
	}
	if len(ids) > 0 {
		w.log.WithField("bundle", name).Infof("Loaded %d skills from installed bundle", len(ids))
	}
}
