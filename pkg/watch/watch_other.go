//go:build !linux

package watch

func newBackend(path string) (backend, error) {
	return newStatBackend(path)
}
