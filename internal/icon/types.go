package icon

import (
	"time"

	"fyne.io/fyne/v2"
)

// Kind classifies a filesystem path for worker selection.
// The set is closed: dispatch is a switch over Kind, not a hierarchy.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindShortcut
	KindMissing
)

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindShortcut:
		return "shortcut"
	case KindMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// PathEntry is the classified view of one path, produced by Classify.
// Immutable once built.
type PathEntry struct {
	Path     string // canonical absolute path
	Name     string
	Kind     Kind
	Ext      string // lower-case extension including the dot, "" for directories
	Size     int64
	Modified time.Time
}

// Fingerprint returns the staleness fingerprint for the entry.
func (e PathEntry) Fingerprint() Fingerprint {
	return Fingerprint{Size: e.Size, Modified: e.Modified}
}

// Fingerprint is the (size, modified-time) pair used to detect that a
// cached icon result is stale.
type Fingerprint struct {
	Size     int64
	Modified time.Time
}

// Equal reports whether two fingerprints match.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Size == other.Size && f.Modified.Equal(other.Modified)
}

// IconResult is the displayable outcome of a resolution.
// Read-only once returned; the cache keeps a shared copy.
type IconResult struct {
	Resource fyne.Resource
	Label    string
	Source   Kind
	Degraded bool // true when a fallback icon was substituted
}
