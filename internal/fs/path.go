package fs

import "encoding/hex"

// PathType tags the wire representation of a guest path.
type PathType uint32

const (
	PathInvalid PathType = iota
	PathEmpty
	PathBinary
	PathChar
	PathWide
)

// Path is a guest filesystem path: either textual, raw binary, or empty.
// Binary paths address an archive's raw byte space rather than a file tree.
type Path struct {
	kind PathType
	str  string
	bin  []byte
}

func CharPath(s string) Path {
	return Path{kind: PathChar, str: s}
}

func WidePath(s string) Path {
	return Path{kind: PathWide, str: s}
}

func BinaryPath(b []byte) Path {
	return Path{kind: PathBinary, bin: b}
}

func EmptyPath() Path {
	return Path{kind: PathEmpty}
}

func (p Path) Type() PathType {
	return p.kind
}

// IsBinary reports whether the path is of the raw/binary kind that
// short-circuits file opens onto the archive handle itself.
func (p Path) IsBinary() bool {
	return p.kind == PathBinary
}

// Text returns the textual form of a char or wide path, and ok=false for
// every other kind.
func (p Path) Text() (string, bool) {
	if p.kind != PathChar && p.kind != PathWide {
		return "", false
	}

	return p.str, true
}

// Binary returns the raw bytes of a binary path.
func (p Path) Binary() []byte {
	return p.bin
}

// String returns a debug representation suitable for object names and logs.
func (p Path) String() string {
	switch p.kind {
	case PathChar, PathWide:
		return p.str
	case PathBinary:
		return "[binary: " + hex.EncodeToString(p.bin) + "]"
	case PathEmpty:
		return "[empty]"
	default:
		return "[invalid]"
	}
}
