package icon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperr "drawers/internal/errors"
)

// Options tunes the dispatcher.
type Options struct {
	ThumbnailSize int
	// Timeout is the soft per-path resolution budget. Zero disables it.
	Timeout time.Duration
}

// Dispatcher selects the worker for an entry's kind and converts every
// worker failure into a degraded fallback result. Resolve is total: it
// never returns an error and never panics across worker boundaries.
type Dispatcher struct {
	provider *DefaultIconProvider
	fsys     FileSystem
	log      zerolog.Logger
	timeout  time.Duration

	dirWorker      *DirectoryWorker
	fileWorker     *FileWorker
	shortcutWorker *ShortcutWorker
}

func NewDispatcher(fsys FileSystem, provider *DefaultIconProvider, logger zerolog.Logger, opts Options) *Dispatcher {
	d := &Dispatcher{
		provider:       provider,
		fsys:           fsys,
		log:            logger,
		timeout:        opts.Timeout,
		dirWorker:      NewDirectoryWorker(provider),
		fileWorker:     NewFileWorker(fsys, opts.ThumbnailSize, logger),
		shortcutWorker: NewShortcutWorker(fsys, logger),
	}
	d.shortcutWorker.resolveTarget = d.resolveTargetPath
	return d
}

// Resolve produces the icon for an entry, applying the per-path time
// budget when one is configured.
func (d *Dispatcher) Resolve(ctx context.Context, entry PathEntry) IconResult {
	if d.timeout <= 0 {
		return d.dispatch(ctx, entry, 0)
	}

	done := make(chan IconResult, 1)
	go func() {
		done <- d.dispatch(ctx, entry, 0)
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res
	case <-timer.C:
		// budget exceeded; the in-flight worker finishes on its own and
		// its late result is discarded
		err := apperr.NewTimeoutError("resolve", entry.Path)
		d.log.Warn().Str("kind", apperr.KindOf(err).String()).Str("path", entry.Path).
			Msg("Resolution budget exceeded, substituting fallback")
		return d.provider.FallbackFor(entry)
	case <-ctx.Done():
		return d.provider.FallbackFor(entry)
	}
}

// dispatch routes an entry to exactly one worker per kind.
func (d *Dispatcher) dispatch(ctx context.Context, entry PathEntry, depth int) IconResult {
	switch entry.Kind {
	case KindMissing:
		return d.provider.FallbackFor(entry)

	case KindDirectory:
		res, err := d.dirWorker.Resolve(ctx, entry)
		if err != nil {
			return d.fallback(entry, err)
		}
		return res

	case KindShortcut:
		res, err := d.shortcutWorker.resolveDepth(ctx, entry, depth)
		if err == nil {
			return res
		}
		if apperr.KindOf(err) == apperr.KindMalformedShortcut {
			// structurally unparseable: fall through to the file worker
			// with the raw file's own extension, no retry of the parse
			d.log.Debug().Err(err).Str("path", entry.Path).
				Msg("Shortcut parse failed, treating as plain file")
			fileEntry := entry
			fileEntry.Kind = KindFile
			if fres, ferr := d.fileWorker.Resolve(ctx, fileEntry); ferr == nil {
				return fres
			}
		}
		return d.fallback(entry, err)

	default:
		res, err := d.fileWorker.Resolve(ctx, entry)
		if err != nil {
			return d.fallback(entry, err)
		}
		return res
	}
}

// resolveTargetPath re-enters the pipeline for a shortcut's target with
// the recursion depth carried through. Total like Resolve.
func (d *Dispatcher) resolveTargetPath(ctx context.Context, path string, depth int) IconResult {
	entry, err := Classify(d.fsys, path)
	if err != nil {
		d.log.Debug().Err(err).Str("path", path).Msg("Shortcut target did not classify")
		return d.provider.FallbackFor(MissingEntry(path))
	}
	return d.dispatch(ctx, entry, depth)
}

// fallback records the failure kind and substitutes the default icon.
func (d *Dispatcher) fallback(entry PathEntry, err error) IconResult {
	d.log.Debug().Str("kind", apperr.KindOf(err).String()).Str("path", entry.Path).Err(err).
		Msg("Worker failed, substituting fallback icon")
	return d.provider.FallbackFor(entry)
}
