// Package lnk parses Windows shell link (.lnk) files.
//
// Only the pieces the icon pipeline needs are interpreted: the fixed
// header, the LinkInfo local base path, and the string data records.
// The LinkTargetIDList is skipped. Input is untrusted; every read is
// bounds-checked and failures surface as malformed-shortcut errors,
// never panics.
package lnk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	apperr "drawers/internal/errors"
)

// HeaderSize is the fixed size of the ShellLinkHeader.
const HeaderSize = 0x4C

// linkCLSID is the class identifier every shell link carries at offset 4.
var linkCLSID = []byte{
	0x01, 0x14, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46,
}

// LinkFlags bits (MS-SHLLINK 2.1.1).
const (
	flagHasLinkTargetIDList = 1 << 0
	flagHasLinkInfo         = 1 << 1
	flagHasName             = 1 << 2
	flagHasRelativePath     = 1 << 3
	flagHasWorkingDir       = 1 << 4
	flagHasArguments        = 1 << 5
	flagHasIconLocation     = 1 << 6
	flagIsUnicode           = 1 << 7
)

// LinkInfoFlags bits (MS-SHLLINK 2.3).
const (
	flagVolumeIDAndLocalBasePath = 1 << 0
)

// Record holds the fields extracted from a shell link.
// Optional sections that were absent leave their fields empty.
type Record struct {
	TargetPath   string // local base path from LinkInfo, preferred target source
	RelativePath string // string record, relative to the shortcut's own directory
	WorkingDir   string
	Name         string
	Arguments    string
	IconLocation string
	IconIndex    int32
	FileSize     uint32
	Attributes   uint32
	Modified     time.Time
}

// Target resolves the link target following the preference order:
// the LinkInfo local base path first, else the relative path resolved
// against dir (the directory containing the shortcut file).
// Returns "" when the record carries neither.
func (r *Record) Target(dir string) string {
	if r.TargetPath != "" {
		return fromWindowsPath(r.TargetPath)
	}
	if r.RelativePath != "" {
		return filepath.Clean(filepath.Join(dir, fromWindowsPath(r.RelativePath)))
	}
	return ""
}

// Parse interprets data as a shell link file.
// Any truncation, signature mismatch or out-of-buffer offset yields a
// malformed-shortcut error.
func Parse(data []byte) (*Record, error) {
	p := &parser{data: data}

	if len(data) < HeaderSize {
		return nil, malformed("file shorter than header", len(data))
	}
	headerSize := p.u32()
	if headerSize != HeaderSize {
		return nil, malformed("unexpected header size", int(headerSize))
	}
	if !bytes.Equal(data[4:20], linkCLSID) {
		return nil, malformed("link class identifier mismatch", 4)
	}
	p.skip(16)

	flags := p.u32()
	rec := &Record{}
	rec.Attributes = p.u32()
	p.skip(16) // creation and access FILETIMEs
	rec.Modified = filetime(p.u64())
	rec.FileSize = p.u32()
	rec.IconIndex = int32(p.u32())
	p.skip(4 + 2 + 2 + 4 + 4) // show command, hotkey, reserved

	// LinkTargetIDList is skipped, not interpreted.
	if flags&flagHasLinkTargetIDList != 0 {
		size, err := p.readU16()
		if err != nil {
			return nil, err
		}
		if err := p.advance(int(size)); err != nil {
			return nil, err
		}
	}

	if flags&flagHasLinkInfo != 0 {
		if err := p.readLinkInfo(rec); err != nil {
			return nil, err
		}
	}

	isUnicode := flags&flagIsUnicode != 0
	stringRecords := []struct {
		flag uint32
		dst  *string
	}{
		{flagHasName, &rec.Name},
		{flagHasRelativePath, &rec.RelativePath},
		{flagHasWorkingDir, &rec.WorkingDir},
		{flagHasArguments, &rec.Arguments},
		{flagHasIconLocation, &rec.IconLocation},
	}
	for _, sr := range stringRecords {
		if flags&sr.flag == 0 {
			continue
		}
		s, err := p.readString(isUnicode)
		if err != nil {
			return nil, err
		}
		*sr.dst = s
	}

	return rec, nil
}

// parser is a bounds-checked little-endian cursor over the input.
// The fixed-header readers (u16/u32/u64/skip) assume the caller already
// verified HeaderSize bytes are present.
type parser struct {
	data []byte
	off  int
}

func (p *parser) u16() uint16 {
	v := binary.LittleEndian.Uint16(p.data[p.off:])
	p.off += 2
	return v
}

func (p *parser) u32() uint32 {
	v := binary.LittleEndian.Uint32(p.data[p.off:])
	p.off += 4
	return v
}

func (p *parser) u64() uint64 {
	v := binary.LittleEndian.Uint64(p.data[p.off:])
	p.off += 8
	return v
}

func (p *parser) skip(n int) {
	p.off += n
}

func (p *parser) readU16() (uint16, error) {
	if p.off+2 > len(p.data) {
		return 0, malformed("truncated record", p.off)
	}
	return p.u16(), nil
}

func (p *parser) readU32() (uint32, error) {
	if p.off+4 > len(p.data) {
		return 0, malformed("truncated record", p.off)
	}
	return p.u32(), nil
}

func (p *parser) advance(n int) error {
	if n < 0 || p.off+n > len(p.data) {
		return malformed("section exceeds buffer", p.off)
	}
	p.off += n
	return nil
}

// readLinkInfo extracts the local base path from the LinkInfo block.
// Offsets inside the block are relative to its first byte; any offset
// pointing outside the declared block is an error.
func (p *parser) readLinkInfo(rec *Record) error {
	start := p.off
	size, err := p.readU32()
	if err != nil {
		return err
	}
	if size < 0x1C || start+int(size) > len(p.data) {
		return malformed("link info size out of range", start)
	}
	block := p.data[start : start+int(size)]

	headerSize := binary.LittleEndian.Uint32(block[4:])
	if headerSize < 0x1C || int(headerSize) > len(block) {
		return malformed("link info header size out of range", start)
	}
	infoFlags := binary.LittleEndian.Uint32(block[8:])

	if infoFlags&flagVolumeIDAndLocalBasePath != 0 {
		baseOff := binary.LittleEndian.Uint32(block[16:])
		base, err := cstringAt(block, baseOff)
		if err != nil {
			return err
		}
		suffixOff := binary.LittleEndian.Uint32(block[24:])
		suffix, err := cstringAt(block, suffixOff)
		if err != nil {
			return err
		}
		joined := make([]byte, 0, len(base)+len(suffix))
		joined = append(joined, base...)
		joined = append(joined, suffix...)
		full, err := decodeANSI(joined)
		if err != nil {
			return err
		}
		rec.TargetPath = full
	}

	p.off = start
	return p.advance(int(size))
}

// readString reads one length-prefixed string data record.
// The prefix counts characters, not bytes.
func (p *parser) readString(isUnicode bool) (string, error) {
	count, err := p.readU16()
	if err != nil {
		return "", err
	}
	n := int(count)
	if isUnicode {
		n *= 2
	}
	if p.off+n > len(p.data) {
		return "", malformed("string record exceeds buffer", p.off)
	}
	raw := p.data[p.off : p.off+n]
	p.off += n

	if isUnicode {
		return decodeUTF16(raw)
	}
	return decodeANSI(raw)
}

// cstringAt returns the NUL-terminated byte string at off within block.
func cstringAt(block []byte, off uint32) ([]byte, error) {
	if int64(off) >= int64(len(block)) {
		return nil, malformed("offset outside link info block", int(off))
	}
	rest := block[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return nil, malformed("unterminated path in link info block", int(off))
	}
	return rest[:end], nil
}

func decodeUTF16(raw []byte) (string, error) {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := dec.String(string(raw))
	if err != nil {
		return "", apperr.NewShortcutError("parse", "", "invalid utf-16 string record", err)
	}
	return s, nil
}

func decodeANSI(raw []byte) (string, error) {
	s, err := charmap.Windows1252.NewDecoder().String(string(raw))
	if err != nil {
		return "", apperr.NewShortcutError("parse", "", "undecodable text record", err)
	}
	return s, nil
}

// fromWindowsPath converts backslash separators to the host separator.
func fromWindowsPath(p string) string {
	if filepath.Separator == '\\' {
		return p
	}
	return strings.ReplaceAll(p, `\`, string(filepath.Separator))
}

// filetime converts a Windows FILETIME (100ns ticks since 1601-01-01)
// to a time.Time. Zero maps to the zero time.
func filetime(ticks uint64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	const epochDelta = 11644473600 // seconds between 1601 and 1970
	secs := int64(ticks/1e7) - epochDelta
	nanos := int64(ticks%1e7) * 100
	return time.Unix(secs, nanos).UTC()
}

func malformed(message string, at int) error {
	return apperr.NewShortcutError("parse", "", fmt.Sprintf("%s (offset %d)", message, at), nil)
}
