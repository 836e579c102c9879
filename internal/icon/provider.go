package icon

import (
	"os"
	"path/filepath"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/rs/zerolog/log"
)

// DefaultIconProvider holds the process-wide fallback icon table.
// Populated once at construction, read-only afterward; every result it
// produces is marked degraded.
type DefaultIconProvider struct {
	folder  fyne.Resource
	file    fyne.Resource
	unknown fyne.Resource
	byClass map[string]fyne.Resource
	classes map[string]string // extension -> class name
}

// extClasses buckets well-known extensions into fallback icon classes.
var extClasses = map[string]string{
	".png": "image", ".jpg": "image", ".jpeg": "image", ".bmp": "image",
	".gif": "image", ".tif": "image", ".tiff": "image", ".webp": "image",
	".mp3": "audio", ".wav": "audio", ".flac": "audio", ".ogg": "audio", ".m4a": "audio",
	".mp4": "video", ".mkv": "video", ".avi": "video", ".mov": "video", ".webm": "video",
	".txt": "text", ".md": "text", ".log": "text", ".json": "text",
	".xml": "text", ".yaml": "text", ".yml": "text",
	".exe": "application", ".com": "application", ".bat": "application",
	".cmd": "application", ".msi": "application", ".sh": "application",
}

// NewDefaultIconProvider builds the fallback table. folderIconPath may
// name an image file to use for folders; when it is empty or unreadable
// the theme folder icon is used, matching the original behavior of
// falling back from a configured path to the theme.
func NewDefaultIconProvider(folderIconPath string) *DefaultIconProvider {
	p := &DefaultIconProvider{
		folder:  theme.FolderIcon(),
		file:    theme.FileIcon(),
		unknown: theme.QuestionIcon(),
		byClass: map[string]fyne.Resource{
			"image":       theme.FileImageIcon(),
			"audio":       theme.FileAudioIcon(),
			"video":       theme.FileVideoIcon(),
			"text":        theme.FileTextIcon(),
			"application": theme.FileApplicationIcon(),
		},
		classes: extClasses,
	}

	if folderIconPath != "" {
		data, err := os.ReadFile(folderIconPath)
		if err != nil {
			log.Warn().Err(err).Str("path", folderIconPath).
				Msg("Configured folder icon not readable, using theme fallback")
		} else {
			p.folder = fyne.NewStaticResource(filepath.Base(folderIconPath), data)
		}
	}

	return p
}

// FolderIcon returns the canonical folder icon.
func (p *DefaultIconProvider) FolderIcon() fyne.Resource { return p.folder }

// FileIcon returns the generic file icon.
func (p *DefaultIconProvider) FileIcon() fyne.Resource { return p.file }

// UnknownIcon returns the icon for unresolvable entries.
func (p *DefaultIconProvider) UnknownIcon() fyne.Resource { return p.unknown }

// ForExtension returns the class fallback icon for an extension, if the
// extension belongs to a known class.
func (p *DefaultIconProvider) ForExtension(ext string) (fyne.Resource, bool) {
	class, ok := p.classes[ext]
	if !ok {
		return nil, false
	}
	res, ok := p.byClass[class]
	return res, ok
}

// FallbackFor produces the degraded substitute result for an entry.
func (p *DefaultIconProvider) FallbackFor(entry PathEntry) IconResult {
	res := IconResult{
		Label:    entry.Name,
		Source:   entry.Kind,
		Degraded: true,
	}
	switch entry.Kind {
	case KindDirectory:
		res.Resource = p.folder
	case KindMissing:
		res.Resource = p.unknown
	default:
		if byExt, ok := p.ForExtension(entry.Ext); ok {
			res.Resource = byExt
		} else {
			res.Resource = p.file
		}
	}
	return res
}

var (
	defaultProvider *DefaultIconProvider
	providerOnce    sync.Once
)

// InitDefault initializes the process-wide provider exactly once and
// returns it. Later calls return the existing table regardless of
// arguments; there is no teardown.
func InitDefault(folderIconPath string) *DefaultIconProvider {
	providerOnce.Do(func() {
		defaultProvider = NewDefaultIconProvider(folderIconPath)
	})
	return defaultProvider
}
