package icon

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperr "drawers/internal/errors"
)

// ShortcutExt is the extension that routes a file to the shortcut worker.
const ShortcutExt = ".lnk"

// Classify stats a path and builds its PathEntry. It performs exactly
// one stat (symlink-following) and no other I/O.
//
// Errors are typed: invalid-encoding for unusable path strings,
// not-found and permission-denied from the stat result.
func Classify(fsys FileSystem, path string) (PathEntry, error) {
	if path == "" {
		return PathEntry{}, apperr.NewEncodingError("classify", path, "empty path")
	}
	if !utf8.ValidString(path) {
		return PathEntry{}, apperr.NewEncodingError("classify", path, "path is not valid utf-8")
	}

	canonical, err := fsys.Abs(filepath.Clean(path))
	if err != nil {
		return PathEntry{}, apperr.NewEncodingError("classify", path, "path cannot be made absolute")
	}

	info, err := fsys.Stat(canonical)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return PathEntry{}, apperr.NewNotFoundError("classify", canonical, err)
		case os.IsPermission(err):
			return PathEntry{}, apperr.NewPermissionError("classify", canonical, err)
		default:
			// broken symlink chains and similar stat failures resolve
			// to nothing displayable, same as a missing path
			return PathEntry{}, apperr.NewNotFoundError("classify", canonical, err)
		}
	}

	entry := PathEntry{
		Path:     canonical,
		Name:     filepath.Base(canonical),
		Size:     info.Size(),
		Modified: info.ModTime(),
	}

	if info.IsDir() {
		entry.Kind = KindDirectory
		return entry, nil
	}

	entry.Ext = strings.ToLower(filepath.Ext(canonical))
	if entry.Ext == ShortcutExt {
		entry.Kind = KindShortcut
	} else {
		entry.Kind = KindFile
	}
	return entry, nil
}

// MissingEntry builds the entry used to dispatch a path whose stat
// failed; the dispatcher resolves it straight to a fallback icon.
func MissingEntry(path string) PathEntry {
	return PathEntry{
		Path: path,
		Name: filepath.Base(path),
		Ext:  strings.ToLower(filepath.Ext(path)),
		Kind: KindMissing,
	}
}
