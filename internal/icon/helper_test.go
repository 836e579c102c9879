package icon

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
	mod  time.Time
}

func (fi fakeFileInfo) Name() string { return fi.name }
func (fi fakeFileInfo) Size() int64  { return fi.size }
func (fi fakeFileInfo) Mode() os.FileMode {
	if fi.dir {
		return os.ModeDir | 0755
	}
	return 0644
}
func (fi fakeFileInfo) ModTime() time.Time { return fi.mod }
func (fi fakeFileInfo) IsDir() bool        { return fi.dir }
func (fi fakeFileInfo) Sys() any           { return nil }

type fakeFile struct {
	data []byte
	mod  time.Time
	dir  bool
}

// fakeFS is an in-memory FileSystem that counts operations so tests can
// assert on I/O cost.
type fakeFS struct {
	mu        sync.Mutex
	files     map[string]*fakeFile
	statErr   map[string]error
	readDelay time.Duration
	statCalls int
	readCalls int
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		files:   make(map[string]*fakeFile),
		statErr: make(map[string]error),
	}
}

func (f *fakeFS) addFile(path string, data []byte, mod time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[filepath.Clean(path)] = &fakeFile{data: data, mod: mod}
}

func (f *fakeFS) addDir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[filepath.Clean(path)] = &fakeFile{dir: true, mod: time.Unix(1700000000, 0)}
}

func (f *fakeFS) stats() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statCalls
}

func (f *fakeFS) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCalls
}

func (f *fakeFS) Stat(path string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statCalls++
	norm := filepath.Clean(path)
	if err, ok := f.statErr[norm]; ok {
		return nil, err
	}
	file, ok := f.files[norm]
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return fakeFileInfo{
		name: filepath.Base(norm),
		size: int64(len(file.data)),
		dir:  file.dir,
		mod:  file.mod,
	}, nil
}

func (f *fakeFS) Lstat(path string) (os.FileInfo, error) {
	return f.Stat(path)
}

func (f *fakeFS) ReadDir(path string) ([]os.DirEntry, error) {
	return nil, &os.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
}

func (f *fakeFS) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	f.readCalls++
	delay := f.readDelay
	file, ok := f.files[filepath.Clean(path)]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok || file.dir {
		return nil, &os.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return file.data, nil
}

func (f *fakeFS) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(string(filepath.Separator), path), nil
}

// Shell link flag bits, duplicated literally so the fixtures stand on
// their own.
const (
	tfHasName         = 1 << 2
	tfHasRelativePath = 1 << 3
	tfHasIconLocation = 1 << 6
	tfIsUnicode       = 1 << 7
)

// shortcutBytes builds a minimal unicode shell link: the 76-byte header
// plus one length-prefixed string record per value, in the order name,
// relative path, icon location as gated by the flags.
func shortcutBytes(flags uint32, strs ...string) []byte {
	buf := make([]byte, 76)
	binary.LittleEndian.PutUint32(buf[0:], 76)
	copy(buf[4:], []byte{
		0x01, 0x14, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46,
	})
	binary.LittleEndian.PutUint32(buf[20:], flags|tfIsUnicode)

	for _, s := range strs {
		rec := make([]byte, 2+len(s)*2)
		binary.LittleEndian.PutUint16(rec, uint16(len(s)))
		for i, r := range []byte(s) {
			rec[2+i*2] = r
		}
		buf = append(buf, rec...)
	}
	return buf
}

// pngBytes encodes a w×h opaque image as PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func classifyEntry(t *testing.T, fsys FileSystem, path string) PathEntry {
	t.Helper()
	entry, err := Classify(fsys, path)
	require.NoError(t, err)
	return entry
}
