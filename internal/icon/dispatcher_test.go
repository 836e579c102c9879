package icon

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestDispatcher(fsys FileSystem, opts Options) (*Dispatcher, *DefaultIconProvider) {
	p := NewDefaultIconProvider("")
	return NewDispatcher(fsys, p, zerolog.Nop(), opts), p
}

func TestResolveMissingEntry(t *testing.T) {
	d, p := newTestDispatcher(newFakeFS(), Options{})

	res := d.Resolve(context.Background(), MissingEntry("/drawer/gone"))
	assert.True(t, res.Degraded)
	assert.Equal(t, p.UnknownIcon(), res.Resource)
	assert.Equal(t, KindMissing, res.Source)
}

func TestResolveDirectory(t *testing.T) {
	fsys := newFakeFS()
	fsys.addDir("/drawer/docs")
	d, p := newTestDispatcher(fsys, Options{})

	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/docs"))
	assert.False(t, res.Degraded)
	assert.Equal(t, p.FolderIcon(), res.Resource)
	assert.Equal(t, "docs", res.Label)
}

// A structurally unparseable shortcut is retried as a plain file; when
// the host has no association for it either, the application-class
// fallback icon stands in.
func TestTruncatedShortcutDegrades(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/bad.lnk", bytes.Repeat([]byte{0xAB}, 40), time.Unix(1700000000, 0))
	d, p := newTestDispatcher(fsys, Options{})

	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/bad.lnk"))
	if !res.Degraded {
		t.Skip("host association lookup resolved the raw file")
	}
	assert.Equal(t, p.FileIcon(), res.Resource)
	assert.Equal(t, "bad.lnk", res.Label)
}

func TestShortcutIconLocation(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/icon.png", pngBytes(t, 4, 4), time.Unix(1700000000, 0))
	fsys.addFile("/drawer/app.lnk",
		shortcutBytes(tfHasIconLocation, "/drawer/icon.png"), time.Unix(1700000000, 0))
	d, _ := newTestDispatcher(fsys, Options{})

	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/app.lnk"))
	assert.False(t, res.Degraded)
	assert.Equal(t, "shortcut:icon.png", res.Resource.Name())
	assert.Equal(t, "app", res.Label)
	assert.Equal(t, KindShortcut, res.Source)
}

func TestShortcutNamedLabel(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/icon.png", pngBytes(t, 4, 4), time.Unix(1700000000, 0))
	fsys.addFile("/drawer/app.lnk",
		shortcutBytes(tfHasName|tfHasIconLocation, "My App", "/drawer/icon.png"),
		time.Unix(1700000000, 0))
	d, _ := newTestDispatcher(fsys, Options{})

	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/app.lnk"))
	assert.Equal(t, "My App", res.Label)
}

// A shortcut whose target no longer exists still yields a displayable
// result: the unknown-path fallback wearing the shortcut's label.
func TestShortcutTargetMissing(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/app.lnk",
		shortcutBytes(tfHasRelativePath, "gone.txt"), time.Unix(1700000000, 0))
	d, p := newTestDispatcher(fsys, Options{})

	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/app.lnk"))
	assert.True(t, res.Degraded)
	assert.Equal(t, p.UnknownIcon(), res.Resource)
	assert.Equal(t, "app", res.Label)
	assert.Equal(t, KindShortcut, res.Source)
}

func TestShortcutToDirectory(t *testing.T) {
	fsys := newFakeFS()
	fsys.addDir("/drawer/sub")
	fsys.addFile("/drawer/sub.lnk",
		shortcutBytes(tfHasRelativePath, "sub"), time.Unix(1700000000, 0))
	d, p := newTestDispatcher(fsys, Options{})

	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/sub.lnk"))
	assert.False(t, res.Degraded)
	assert.Equal(t, p.FolderIcon(), res.Resource)
	assert.Equal(t, "sub", res.Label)
	assert.Equal(t, KindShortcut, res.Source)
}

// Two shortcuts pointing at each other must terminate at the depth
// bound with a degraded result, not recurse.
func TestShortcutChainIsBounded(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/a.lnk",
		shortcutBytes(tfHasRelativePath, "b.lnk"), time.Unix(1700000000, 0))
	fsys.addFile("/drawer/b.lnk",
		shortcutBytes(tfHasRelativePath, "a.lnk"), time.Unix(1700000000, 0))
	d, _ := newTestDispatcher(fsys, Options{})

	done := make(chan IconResult, 1)
	go func() {
		done <- d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/a.lnk"))
	}()
	select {
	case res := <-done:
		assert.True(t, res.Degraded)
		assert.NotNil(t, res.Resource)
	case <-time.After(2 * time.Second):
		t.Fatal("shortcut chain did not terminate")
	}
}

func TestResolveTimeoutSubstitutesFallback(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/slow.lnk",
		shortcutBytes(tfHasRelativePath, "gone.txt"), time.Unix(1700000000, 0))
	fsys.readDelay = 300 * time.Millisecond
	d, p := newTestDispatcher(fsys, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	res := d.Resolve(context.Background(), classifyEntry(t, fsys, "/drawer/slow.lnk"))
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.True(t, res.Degraded)
	assert.Equal(t, p.FallbackFor(PathEntry{Name: "slow.lnk", Kind: KindShortcut, Ext: ".lnk"}).Resource, res.Resource)
}

func TestResolveContextCancelled(t *testing.T) {
	fsys := newFakeFS()
	fsys.addFile("/drawer/slow.lnk",
		shortcutBytes(tfHasRelativePath, "gone.txt"), time.Unix(1700000000, 0))
	entry := classifyEntry(t, fsys, "/drawer/slow.lnk")
	fsys.readDelay = 300 * time.Millisecond
	d, _ := newTestDispatcher(fsys, Options{Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := d.Resolve(ctx, entry)
	assert.True(t, res.Degraded)
}
