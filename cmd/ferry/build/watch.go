package build

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watch builds once, then rebuilds on every change to the module file.
// Build failures are logged and watching continues.
func Watch(path string, opts Options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "watcher")
	}
	defer w.Close()

	// Editors replace the file on save, so watch its directory and
	// filter events down to the one path.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	rebuild := func() {
		if err := Build(path, opts); err != nil {
			log.Println(err)
			return
		}
		log.Printf("built %s", path)
	}
	rebuild()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// One save arrives as several events. Let them settle.
			settle := time.After(50 * time.Millisecond)
		drain:
			for {
				select {
				case <-w.Events:
				case <-settle:
					break drain
				}
			}
			rebuild()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watcher")
		}
	}
}
