//go:build !windows

package icon

import (
	"fyne.io/fyne/v2"
)

// Non-Windows platforms have no per-extension association facility
// here; returning nil routes the dispatcher to the provider fallbacks.
func platformFetchExtIcon(ext string, size int) (fyne.Resource, error) {
	return nil, nil
}

func platformFetchFileIcon(path string, size int) (fyne.Resource, error) {
	return nil, nil
}

// preferFileIcon determines whether to fetch a file-specific icon (by path).
// Non-Windows: always false.
func preferFileIcon(path, ext string) bool { return false }
