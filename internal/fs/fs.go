// Package fs defines the storage backend capability interfaces consumed by
// the filesystem service core, together with the guest-visible path, open
// mode and directory entry types. One backend implementation exists per
// archive type; new archive types are added by providing a new
// implementation, never by modifying the dispatch core.
package fs

// ArchiveID identifies a mountable archive type (the "id code" of the
// guest ABI).
type ArchiveID uint32

const (
	ArchiveRomFS             ArchiveID = 3
	ArchiveSaveData          ArchiveID = 4
	ArchiveExtSaveData       ArchiveID = 6
	ArchiveSharedExtSaveData ArchiveID = 7
	ArchiveSystemSaveData    ArchiveID = 8
	ArchiveSDMC              ArchiveID = 9
	ArchiveSDMCWriteOnly     ArchiveID = 10
)

func (id ArchiveID) String() string {
	switch id {
	case ArchiveRomFS:
		return "RomFS"
	case ArchiveSaveData:
		return "SaveData"
	case ArchiveExtSaveData:
		return "ExtSaveData"
	case ArchiveSharedExtSaveData:
		return "SharedExtSaveData"
	case ArchiveSystemSaveData:
		return "SystemSaveData"
	case ArchiveSDMC:
		return "SDMC"
	case ArchiveSDMCWriteOnly:
		return "SDMCWriteOnly"
	default:
		return "Unknown"
	}
}

// Mode is the open mode bitfield for files.
type Mode uint32

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeCreate
)

// ArchiveBackend is the pluggable per-archive-type storage implementation.
// Boolean operations deliberately carry no failure cause; the service layer
// maps false onto status-class result codes.
type ArchiveBackend interface {
	// IDCode returns the archive type identifier this backend serves.
	IDCode() ArchiveID

	// OpenFile opens path in the given mode, returning false when the
	// backend has no file to offer.
	OpenFile(path Path, mode Mode) (FileBackend, bool)

	// OpenDirectory opens the directory at path, returning false when it
	// does not exist.
	OpenDirectory(path Path) (DirectoryBackend, bool)

	DeleteFile(path Path) bool
	RenameFile(src Path, dst Path) bool
	DeleteDirectory(path Path) bool
	CreateDirectory(path Path) bool
	RenameDirectory(src Path, dst Path) bool

	// Raw byte access against the archive itself, used by guests that hold
	// an archive handle where a file handle is expected.
	Read(offset uint64, dst []byte) uint32
	Write(offset uint64, src []byte, flush bool) uint32
	Size() uint64
	SetSize(size uint64)
}

// FileBackend is one per-open file handle owned by a File object.
type FileBackend interface {
	// Read copies up to len(dst) bytes starting at offset into dst and
	// returns the number of bytes read.
	Read(offset uint64, dst []byte) uint32

	// Write stores src at offset, growing the file as needed, and returns
	// the number of bytes written. When flush is set the data is committed
	// to stable storage before returning.
	Write(offset uint64, src []byte, flush bool) uint32

	Size() uint64
	SetSize(size uint64)

	// Close releases the backend handle.
	Close() bool
}

// DirectoryBackend is one per-open directory handle owned by a Directory
// object. Successive Read calls continue the enumeration.
type DirectoryBackend interface {
	// Read returns up to max of the remaining entries.
	Read(max uint32) []Entry

	Close() bool
}
