package icon

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	apperr "drawers/internal/errors"
)

// Worker resolves one classification of PathEntry into an IconResult.
// A worker may fail; converting failures into degraded fallbacks is the
// dispatcher's job, never the worker's.
type Worker interface {
	Resolve(ctx context.Context, entry PathEntry) (IconResult, error)
}

// DirectoryWorker resolves directories. It performs no I/O and returns
// the same canonical folder icon regardless of the directory's
// contents or permissions.
type DirectoryWorker struct {
	provider *DefaultIconProvider
}

func NewDirectoryWorker(provider *DefaultIconProvider) *DirectoryWorker {
	return &DirectoryWorker{provider: provider}
}

func (w *DirectoryWorker) Resolve(_ context.Context, entry PathEntry) (IconResult, error) {
	return IconResult{
		Resource: w.provider.FolderIcon(),
		Label:    entry.Name,
		Source:   KindDirectory,
	}, nil
}

// FileWorker resolves regular files through the host icon-association
// facility. Extension-level results are shared across files; files
// whose icon can be file-specific (executables, icon files, shortcut
// targets) are looked up per path. Image files get thumbnails decoded
// from the file itself.
type FileWorker struct {
	fsys      FileSystem
	thumbSize int
	log       zerolog.Logger

	mu       sync.RWMutex
	extCache map[string]fyne.Resource
}

func NewFileWorker(fsys FileSystem, thumbSize int, logger zerolog.Logger) *FileWorker {
	if thumbSize <= 0 {
		thumbSize = 32
	}
	return &FileWorker{
		fsys:      fsys,
		thumbSize: thumbSize,
		log:       logger,
		extCache:  make(map[string]fyne.Resource, 64),
	}
}

func (w *FileWorker) Resolve(_ context.Context, entry PathEntry) (IconResult, error) {
	if isImageExt(entry.Ext) {
		res, err := w.thumbnail(entry.Path)
		if err == nil {
			return IconResult{Resource: res, Label: entry.Name, Source: KindFile}, nil
		}
		w.log.Debug().Err(err).Str("path", entry.Path).Msg("Thumbnail generation failed")
	}

	if preferFileIcon(entry.Path, entry.Ext) {
		res, err := platformFetchFileIcon(entry.Path, w.thumbSize)
		if err == nil && res != nil {
			return IconResult{Resource: res, Label: entry.Name, Source: KindFile}, nil
		}
	}

	if res, ok := w.cachedExtIcon(entry.Ext); ok {
		return IconResult{Resource: res, Label: entry.Name, Source: KindFile}, nil
	}

	if entry.Ext != "" {
		res, err := platformFetchExtIcon(entry.Ext, w.thumbSize)
		if err == nil && res != nil {
			w.mu.Lock()
			w.extCache[entry.Ext] = res
			w.mu.Unlock()
			return IconResult{Resource: res, Label: entry.Name, Source: KindFile}, nil
		}
	}

	return IconResult{}, apperr.NewLookupError("lookup", entry.Path, "no icon association for "+entry.Ext)
}

func (w *FileWorker) cachedExtIcon(ext string) (fyne.Resource, bool) {
	if ext == "" {
		return nil, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	res, ok := w.extCache[ext]
	return res, ok
}

// thumbnail decodes an image file and scales it to the configured size.
func (w *FileWorker) thumbnail(path string) (fyne.Resource, error) {
	data, err := w.fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(thumbRect(img.Bounds(), w.thumbSize))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, dst); err != nil {
		return nil, err
	}
	return fyne.NewStaticResource("thumb:"+path, buf.Bytes()), nil
}

// thumbRect fits bounds into a size×size box preserving aspect ratio.
func thumbRect(bounds image.Rectangle, size int) image.Rectangle {
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw <= 0 || sh <= 0 {
		return image.Rect(0, 0, size, size)
	}
	if sw >= sh {
		h := sh * size / sw
		if h < 1 {
			h = 1
		}
		return image.Rect(0, 0, size, h)
	}
	w := sw * size / sh
	if w < 1 {
		w = 1
	}
	return image.Rect(0, 0, w, size)
}

// isImageExt reports whether the extension names a thumbnailable image.
func isImageExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	default:
		return false
	}
}
