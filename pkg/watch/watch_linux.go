//go:build linux

package watch

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	changeMask = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_ATTRIB
	goneMask   = unix.IN_DELETE_SELF | unix.IN_MOVE_SELF | unix.IN_IGNORED
)

type inotifyBackend struct {
	fd   int
	wd   int // -1 while the file is gone
	path string
	buf  []byte
}

func newBackend(path string) (backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %w", err)
	}
	b := &inotifyBackend{fd: fd, wd: -1, path: path, buf: make([]byte, 4096)}
	if err := b.add(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return b, nil
}

func (b *inotifyBackend) add() error {
	wd, err := unix.InotifyAddWatch(b.fd, b.path, changeMask|unix.IN_DELETE_SELF|unix.IN_MOVE_SELF)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", b.path, err)
	}
	b.wd = wd
	return nil
}

func (b *inotifyBackend) poll() (bool, error) {
	if b.wd < 0 {
		// An editor replaced the file. It counts as a change once it is back.
		if err := b.add(); err != nil {
			return false, nil
		}
		return true, nil
	}

	changed := false
	for {
		n, err := unix.Read(b.fd, b.buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return changed, nil
		}
		if err != nil {
			return changed, fmt.Errorf("read inotify events: %w", err)
		}
		if n <= 0 {
			return changed, nil
		}

		for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&b.buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)

			if event.Mask&changeMask != 0 {
				changed = true
			}
			if event.Mask&goneMask != 0 && b.wd >= 0 {
				if event.Mask&unix.IN_MOVE_SELF != 0 {
					unix.InotifyRmWatch(b.fd, uint32(b.wd))
				}
				b.wd = -1
			}
		}
	}
}

func (b *inotifyBackend) close() error {
	return unix.Close(b.fd)
}
