package fs

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

// Guest directory entry record, 0x228 bytes little-endian:
//
//	0x000  UTF-16 filename, 0x106 code units, null terminated
//	0x20C  8.3 short name, 10 bytes ASCII
//	0x216  8.3 short extension, 4 bytes ASCII
//	0x21A  set to 1 when the entry is valid
//	0x21C  attribute bits
//	0x220  file size in bytes
const (
	EntrySize      = 0x228
	entryNameUnits = 0x106
)

// Attribute bits of a directory entry.
const (
	AttributeDirectory uint32 = 1 << 0
	AttributeHidden    uint32 = 1 << 1
	AttributeArchive   uint32 = 1 << 2
	AttributeReadOnly  uint32 = 1 << 3
)

// Entry is one guest-visible directory entry record.
type Entry struct {
	Name       string
	ShortName  string
	ShortExt   string
	Attributes uint32
	Size       uint64
}

func (e Entry) IsDirectory() bool {
	return e.Attributes&AttributeDirectory != 0
}

// EncodeTo writes the record into dst, which must be at least EntrySize
// bytes. The layout is fixed by the guest ABI.
func (e Entry) EncodeTo(dst []byte) {
	clear(dst[:EntrySize])

	units := utf16.Encode([]rune(e.Name))
	if len(units) > entryNameUnits-1 {
		units = units[:entryNameUnits-1]
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(dst[i*2:], u)
	}

	copy(dst[0x20C:0x216], e.ShortName)
	copy(dst[0x216:0x21A], e.ShortExt)
	dst[0x21A] = 1
	binary.LittleEndian.PutUint32(dst[0x21C:], e.Attributes)
	binary.LittleEndian.PutUint64(dst[0x220:], e.Size)
}

// ShortNameOf derives an uppercase 8.3 short name and extension from a long
// filename, for backends that do not track short names natively.
func ShortNameOf(name string) (string, string) {
	base := name
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		base = name[:i]
		ext = name[i+1:]
	}

	base = strings.ToUpper(base)
	ext = strings.ToUpper(ext)

	if len(base) > 8 {
		base = base[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}

	return base, ext
}
