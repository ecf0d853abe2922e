package watch

import (
	"os"
	"time"
)

// statBackend detects changes by comparing modification time and size. It
// works everywhere and is used where inotify is not available.
type statBackend struct {
	path    string
	modTime time.Time
	size    int64
	missing bool
}

func newStatBackend(path string) (*statBackend, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &statBackend{path: path, modTime: fi.ModTime(), size: fi.Size()}, nil
}

func (b *statBackend) poll() (bool, error) {
	fi, err := os.Stat(b.path)
	if os.IsNotExist(err) {
		// Mid-save for editors that write a new file and rename it.
		b.missing = true
		return false, nil
	}
	if err != nil {
		return false, err
	}

	changed := b.missing || !fi.ModTime().Equal(b.modTime) || fi.Size() != b.size
	b.missing = false
	b.modTime = fi.ModTime()
	b.size = fi.Size()
	return changed, nil
}

func (b *statBackend) close() error {
	return nil
}
