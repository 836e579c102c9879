//go:build windows

package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"syscall"
	"unsafe"

	"fyne.io/fyne/v2"
)

// Windows icon extraction via SHGetFileInfo, rendering the HICON into a
// 32-bit DIB and re-encoding it as PNG for the resource handle.

var (
	modShell32         = syscall.NewLazyDLL("shell32.dll")
	procSHGetFileInfoW = modShell32.NewProc("SHGetFileInfoW")

	modUser32       = syscall.NewLazyDLL("user32.dll")
	procDestroyIcon = modUser32.NewProc("DestroyIcon")
	procDrawIconEx  = modUser32.NewProc("DrawIconEx")

	modGdi32               = syscall.NewLazyDLL("gdi32.dll")
	procCreateCompatibleDC = modGdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = modGdi32.NewProc("DeleteDC")
	procCreateDIBSection   = modGdi32.NewProc("CreateDIBSection")
	procSelectObject       = modGdi32.NewProc("SelectObject")
	procDeleteObject       = modGdi32.NewProc("DeleteObject")
)

const (
	shgfiIcon              = 0x000000100
	shgfiUseFileAttributes = 0x000000010
	shgfiSmallIcon         = 0x000000001

	fileAttributeNormal = 0x00000080

	diNormal     = 0x0003
	dibRGBColors = 0
	biRGB        = 0
)

type shfileinfoW struct {
	hIcon         syscall.Handle
	iIcon         int32
	dwAttributes  uint32
	szDisplayName [260]uint16
	szTypeName    [80]uint16
}

type bitmapinfoheader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

type bitmapinfo struct {
	bmiHeader bitmapinfoheader
}

func platformFetchExtIcon(ext string, size int) (fyne.Resource, error) {
	if ext == "" {
		return nil, fmt.Errorf("empty extension")
	}
	var sfi shfileinfoW
	flags := uint32(shgfiIcon | shgfiUseFileAttributes)
	if iconSizeFor(size) <= 16 {
		flags |= shgfiSmallIcon
	}
	pExt, _ := syscall.UTF16PtrFromString(ext)
	r1, _, e1 := procSHGetFileInfoW.Call(
		uintptr(unsafe.Pointer(pExt)),
		uintptr(fileAttributeNormal),
		uintptr(unsafe.Pointer(&sfi)),
		uintptr(uint32(unsafe.Sizeof(sfi))),
		uintptr(flags),
	)
	if r1 == 0 {
		if e1 != syscall.Errno(0) {
			return nil, e1
		}
		return nil, fmt.Errorf("SHGetFileInfoW failed for ext %s", ext)
	}
	return resourceFromHICON(sfi.hIcon, "ext:"+ext, size)
}

func platformFetchFileIcon(path string, size int) (fyne.Resource, error) {
	var sfi shfileinfoW
	flags := uint32(shgfiIcon)
	if iconSizeFor(size) <= 16 {
		flags |= shgfiSmallIcon
	}
	pPath, _ := syscall.UTF16PtrFromString(path)
	r1, _, e1 := procSHGetFileInfoW.Call(
		uintptr(unsafe.Pointer(pPath)),
		0,
		uintptr(unsafe.Pointer(&sfi)),
		uintptr(uint32(unsafe.Sizeof(sfi))),
		uintptr(flags),
	)
	if r1 == 0 {
		if e1 != syscall.Errno(0) {
			return nil, e1
		}
		return nil, fmt.Errorf("SHGetFileInfoW failed for path")
	}
	return resourceFromHICON(sfi.hIcon, "file:"+path, size)
}

// preferFileIcon returns true for types where a file-specific icon is
// beneficial: executables embed their own, .lnk resolves to a target's,
// .ico files are icons themselves.
func preferFileIcon(path, ext string) bool {
	switch ext {
	case ".exe", ".lnk", ".ico":
		return true
	default:
		return false
	}
}

func iconSizeFor(size int) int {
	switch {
	case size <= 16:
		return 16
	case size <= 24:
		return 24
	default:
		return 32
	}
}

func resourceFromHICON(hicon syscall.Handle, name string, size int) (fyne.Resource, error) {
	if hicon == 0 {
		return nil, fmt.Errorf("null icon handle")
	}
	defer procDestroyIcon.Call(uintptr(hicon))

	img, err := renderHICONToImage(hicon, iconSizeFor(size))
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return fyne.NewStaticResource(name, buf.Bytes()), nil
}

func renderHICONToImage(hicon syscall.Handle, size int) (image.Image, error) {
	hdc, _, _ := procCreateCompatibleDC.Call(0)
	if hdc == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hdc)

	// 32-bit top-down DIB section
	var bmi bitmapinfo
	bmi.bmiHeader.biSize = uint32(unsafe.Sizeof(bmi.bmiHeader))
	bmi.bmiHeader.biWidth = int32(size)
	bmi.bmiHeader.biHeight = -int32(size)
	bmi.bmiHeader.biPlanes = 1
	bmi.bmiHeader.biBitCount = 32
	bmi.bmiHeader.biCompression = biRGB

	var bits unsafe.Pointer
	hbmp, _, _ := procCreateDIBSection.Call(
		hdc,
		uintptr(unsafe.Pointer(&bmi)),
		dibRGBColors,
		uintptr(unsafe.Pointer(&bits)),
		0,
		0,
	)
	if hbmp == 0 || bits == nil {
		return nil, fmt.Errorf("CreateDIBSection failed")
	}
	defer procDeleteObject.Call(hbmp)

	oldObj, _, _ := procSelectObject.Call(hdc, hbmp)
	defer func() {
		if oldObj != 0 {
			procSelectObject.Call(hdc, oldObj)
		}
	}()

	ok, _, _ := procDrawIconEx.Call(
		hdc,
		0, 0,
		uintptr(hicon),
		uintptr(size), uintptr(size),
		0,
		0,
		diNormal,
	)
	if ok == 0 {
		return nil, fmt.Errorf("DrawIconEx failed")
	}

	// BGRA -> RGBA
	stride := size * 4
	buf := copyDIBBytes(bits, size*stride)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := y*stride + x*4
			oi := img.PixOffset(x, y)
			img.Pix[oi+0] = buf[i+2]
			img.Pix[oi+1] = buf[i+1]
			img.Pix[oi+2] = buf[i+0]
			img.Pix[oi+3] = buf[i+3]
		}
	}
	return img, nil
}

// copyDIBBytes copies C memory into a Go slice without cgo.
func copyDIBBytes(p unsafe.Pointer, n int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	b := make([]byte, n)
	copy(b, (*[1 << 30]byte)(p)[:n:n])
	return b
}
