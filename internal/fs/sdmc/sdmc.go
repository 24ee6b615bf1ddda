// Package sdmc provides the SD-card archive backend over a host directory.
package sdmc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	hfs "github.com/ctremu/horizonfs/internal/fs"
	"golang.org/x/sys/unix"
)

type osProvider interface {
	MkdirAll(path string, perm os.FileMode) error
	Mkdir(name string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(name string) (os.FileInfo, error)
	Remove(name string) error
	Rename(oldpath string, newpath string) error
	ReadDir(name string) ([]os.DirEntry, error)
}

type unixProvider interface {
	Access(path string, mode uint32) error
}

// OSOps implements the os-call provider against the real host.
type OSOps struct{}

func (*OSOps) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (*OSOps) Mkdir(name string, perm os.FileMode) error { return os.Mkdir(name, perm) }

func (*OSOps) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (*OSOps) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (*OSOps) Remove(name string) error { return os.Remove(name) }

func (*OSOps) Rename(oldpath string, newpath string) error { return os.Rename(oldpath, newpath) }

func (*OSOps) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// UnixOps implements the unix-call provider against the real host.
type UnixOps struct{}

func (*UnixOps) Access(path string, mode uint32) error { return unix.Access(path, mode) }

// ErrRootNotWritable is an error that occurs when the configured storage
// root cannot be written by the emulator process.
var ErrRootNotWritable = errors.New("storage root is not writable")

// Backend is a host-directory implementation of [hfs.ArchiveBackend]. Raw
// archive-level byte access is not meaningful for an SD card root and is
// reported as a no-op.
type Backend struct {
	root    string
	OSOps   osProvider
	UnixOps unixProvider
}

func New(root string) *Backend {
	return &Backend{
		root:    root,
		OSOps:   &OSOps{},
		UnixOps: &UnixOps{},
	}
}

// Initialize creates the storage root when absent and probes that it is
// writable. A failed initialization leaves the archive type unmounted; it
// is never fatal to the emulator.
func (b *Backend) Initialize() error {
	if err := b.OSOps.MkdirAll(b.root, 0o755); err != nil {
		return fmt.Errorf("(sdmc) failed to create storage root: %w", err)
	}

	if err := b.UnixOps.Access(b.root, unix.W_OK); err != nil {
		return fmt.Errorf("(sdmc) %w: %s", ErrRootNotWritable, b.root)
	}

	return nil
}

func (b *Backend) IDCode() hfs.ArchiveID {
	return hfs.ArchiveSDMC
}

// hostPath maps a guest char path into the storage root, rejecting
// non-textual paths and escapes above the root.
func (b *Backend) hostPath(p hfs.Path) (string, bool) {
	text, ok := p.Text()
	if !ok {
		return "", false
	}

	joined := filepath.Join(b.root, filepath.FromSlash(text))
	if joined != b.root && !strings.HasPrefix(joined, b.root+string(filepath.Separator)) {
		return "", false
	}

	return joined, true
}

func (b *Backend) OpenFile(p hfs.Path, mode hfs.Mode) (hfs.FileBackend, bool) {
	name, ok := b.hostPath(p)
	if !ok {
		return nil, false
	}

	flag := os.O_RDONLY
	if mode&hfs.ModeWrite != 0 {
		flag = os.O_RDWR
	}
	if mode&hfs.ModeCreate != 0 {
		flag |= os.O_CREATE
	}

	f, err := b.OSOps.OpenFile(name, flag, 0o644)
	if err != nil {
		slog.Debug("SDMC open failed.", "path", p.String(), "err", err)

		return nil, false
	}

	return &fileHandle{f: f}, true
}

func (b *Backend) OpenDirectory(p hfs.Path) (hfs.DirectoryBackend, bool) {
	name, ok := b.hostPath(p)
	if !ok {
		return nil, false
	}

	listing, err := b.OSOps.ReadDir(name)
	if err != nil {
		slog.Debug("SDMC directory open failed.", "path", p.String(), "err", err)

		return nil, false
	}

	entries := make([]hfs.Entry, 0, len(listing))
	for _, ent := range listing {
		short, ext := hfs.ShortNameOf(ent.Name())

		entry := hfs.Entry{
			Name:      ent.Name(),
			ShortName: short,
			ShortExt:  ext,
		}
		if ent.IsDir() {
			entry.Attributes |= hfs.AttributeDirectory
		} else if info, err := ent.Info(); err == nil {
			entry.Size = uint64(info.Size())
		}

		entries = append(entries, entry)
	}

	return &dirHandle{entries: entries}, true
}

func (b *Backend) DeleteFile(p hfs.Path) bool {
	name, ok := b.hostPath(p)
	if !ok {
		return false
	}

	info, err := b.OSOps.Stat(name)
	if err != nil || info.IsDir() {
		return false
	}

	return b.OSOps.Remove(name) == nil
}

func (b *Backend) RenameFile(src hfs.Path, dst hfs.Path) bool {
	return b.rename(src, dst, false)
}

func (b *Backend) DeleteDirectory(p hfs.Path) bool {
	name, ok := b.hostPath(p)
	if !ok || name == b.root {
		return false
	}

	info, err := b.OSOps.Stat(name)
	if err != nil || !info.IsDir() {
		return false
	}

	// os.Remove refuses non-empty directories, matching the contract.
	return b.OSOps.Remove(name) == nil
}

func (b *Backend) CreateDirectory(p hfs.Path) bool {
	name, ok := b.hostPath(p)
	if !ok || name == b.root {
		return false
	}

	return b.OSOps.Mkdir(name, 0o755) == nil
}

func (b *Backend) RenameDirectory(src hfs.Path, dst hfs.Path) bool {
	return b.rename(src, dst, true)
}

func (b *Backend) rename(src hfs.Path, dst hfs.Path, wantDir bool) bool {
	srcName, ok := b.hostPath(src)
	if !ok {
		return false
	}
	dstName, ok := b.hostPath(dst)
	if !ok {
		return false
	}

	info, err := b.OSOps.Stat(srcName)
	if err != nil || info.IsDir() != wantDir {
		return false
	}
	if _, err := b.OSOps.Stat(dstName); err == nil {
		return false
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false
	}

	return b.OSOps.Rename(srcName, dstName) == nil
}

func (b *Backend) Read(uint64, []byte) uint32 {
	slog.Warn("Raw archive read is not supported on SDMC.")

	return 0
}

func (b *Backend) Write(uint64, []byte, bool) uint32 {
	slog.Warn("Raw archive write is not supported on SDMC.")

	return 0
}

func (b *Backend) Size() uint64 {
	return 0
}

func (b *Backend) SetSize(uint64) {
	slog.Warn("Raw archive resize is not supported on SDMC.")
}

type fileHandle struct {
	f *os.File
}

func (h *fileHandle) Read(offset uint64, dst []byte) uint32 {
	n, err := h.f.ReadAt(dst, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("SDMC file read failed.", "file", h.f.Name(), "err", err)
	}

	return uint32(n)
}

func (h *fileHandle) Write(offset uint64, src []byte, flush bool) uint32 {
	n, err := h.f.WriteAt(src, int64(offset))
	if err != nil {
		slog.Warn("SDMC file write failed.", "file", h.f.Name(), "err", err)
	}
	if flush {
		if err := h.f.Sync(); err != nil {
			slog.Warn("SDMC file flush failed.", "file", h.f.Name(), "err", err)
		}
	}

	return uint32(n)
}

func (h *fileHandle) Size() uint64 {
	info, err := h.f.Stat()
	if err != nil {
		return 0
	}

	return uint64(info.Size())
}

func (h *fileHandle) SetSize(size uint64) {
	if err := h.f.Truncate(int64(size)); err != nil {
		slog.Warn("SDMC file resize failed.", "file", h.f.Name(), "err", err)
	}
}

func (h *fileHandle) Close() bool {
	return h.f.Close() == nil
}

type dirHandle struct {
	entries []hfs.Entry
	pos     int
}

func (h *dirHandle) Read(max uint32) []hfs.Entry {
	remaining := h.entries[h.pos:]
	if uint32(len(remaining)) > max {
		remaining = remaining[:max]
	}
	h.pos += len(remaining)

	return remaining
}

func (h *dirHandle) Close() bool {
	return true
}
