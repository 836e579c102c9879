package icon

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"

	apperr "drawers/internal/errors"
	"drawers/internal/lnk"
)

// maxShortcutDepth bounds recursive target resolution so two shortcuts
// pointing at each other cannot loop.
const maxShortcutDepth = 1

// targetResolver resolves a target path through the full pipeline.
// Installed by the dispatcher; carries the recursion depth.
type targetResolver func(ctx context.Context, path string, depth int) IconResult

// ShortcutWorker resolves .lnk shortcut files: parse the link, prefer
// its explicit icon location, else borrow the resolved target's icon.
type ShortcutWorker struct {
	fsys          FileSystem
	log           zerolog.Logger
	resolveTarget targetResolver
}

func NewShortcutWorker(fsys FileSystem, logger zerolog.Logger) *ShortcutWorker {
	return &ShortcutWorker{fsys: fsys, log: logger}
}

func (w *ShortcutWorker) Resolve(ctx context.Context, entry PathEntry) (IconResult, error) {
	return w.resolveDepth(ctx, entry, 0)
}

func (w *ShortcutWorker) resolveDepth(ctx context.Context, entry PathEntry, depth int) (IconResult, error) {
	data, err := w.fsys.ReadFile(entry.Path)
	if err != nil {
		return IconResult{}, apperr.NewShortcutError("read", entry.Path, "cannot read shortcut file", err)
	}

	rec, err := lnk.Parse(data)
	if err != nil {
		return IconResult{}, err
	}

	label := shortcutLabel(entry, rec)

	if loc := expandEnvVars(rec.IconLocation); loc != "" {
		if res := w.iconFromPath(loc); res != nil {
			return IconResult{Resource: res, Label: label, Source: KindShortcut}, nil
		}
		w.log.Debug().Str("path", entry.Path).Str("iconLocation", loc).
			Msg("Shortcut icon location did not yield an icon")
	}

	target := rec.Target(filepath.Dir(entry.Path))
	if target != "" && depth < maxShortcutDepth && w.resolveTarget != nil {
		res := w.resolveTarget(ctx, target, depth+1)
		res.Label = label
		res.Source = KindShortcut
		return res, nil
	}

	return IconResult{}, apperr.NewLookupError("resolve", entry.Path, "shortcut carries no icon source")
}

// iconFromPath loads an icon from an explicit icon-location path: image
// files are loaded directly, anything else goes through the per-file
// association lookup. Returns nil when the path yields nothing.
func (w *ShortcutWorker) iconFromPath(path string) fyne.Resource {
	if _, err := w.fsys.Stat(path); err != nil {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	if isImageExt(ext) || ext == ".ico" {
		data, err := w.fsys.ReadFile(path)
		if err != nil {
			return nil
		}
		return fyne.NewStaticResource("shortcut:"+filepath.Base(path), data)
	}
	res, err := platformFetchFileIcon(path, 32)
	if err != nil || res == nil {
		return nil
	}
	return res
}

// shortcutLabel prefers the link's own display name, falling back to
// the file name without the .lnk suffix.
func shortcutLabel(entry PathEntry, rec *lnk.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	return strings.TrimSuffix(entry.Name, filepath.Ext(entry.Name))
}

// expandEnvVars expands Windows-style %NAME% references against the
// process environment. Unset names are left untouched.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			break
		}
		name := s[start+1 : start+1+end]
		b.WriteString(s[:start])
		if val, ok := os.LookupEnv(name); ok {
			b.WriteString(val)
		} else {
			b.WriteString(s[start : start+end+2])
		}
		s = s[start+end+2:]
	}
	b.WriteString(s)
	return b.String()
}
