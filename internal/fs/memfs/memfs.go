// Package memfs provides an in-memory archive backend. It backs the unit
// and end-to-end tests and can be mounted at startup for diskless runs.
package memfs

import (
	gopath "path"
	"sort"
	"strings"
	"sync"

	"github.com/ctremu/horizonfs/internal/fs"
)

// Backend is an in-memory implementation of [fs.ArchiveBackend]: a flat
// path map for files, a directory set, and a raw byte region serving the
// archive-level access path.
type Backend struct {
	mu    sync.RWMutex
	id    fs.ArchiveID
	files map[string]*fileData
	dirs  map[string]bool
	raw   []byte
}

type fileData struct {
	mu   sync.RWMutex
	data []byte
}

func New(id fs.ArchiveID) *Backend {
	return &Backend{
		id:    id,
		files: make(map[string]*fileData),
		dirs:  map[string]bool{"/": true},
	}
}

func (b *Backend) IDCode() fs.ArchiveID {
	return b.id
}

func normalize(p fs.Path) (string, bool) {
	text, ok := p.Text()
	if !ok {
		return "", false
	}

	name := gopath.Clean("/" + text)

	return name, true
}

func (b *Backend) OpenFile(p fs.Path, mode fs.Mode) (fs.FileBackend, bool) {
	name, ok := normalize(p)
	if !ok {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, exists := b.files[name]
	if !exists {
		if mode&fs.ModeCreate == 0 {
			return nil, false
		}
		if b.dirs[name] {
			return nil, false
		}

		f = &fileData{}
		b.files[name] = f
	}

	return &fileHandle{f: f}, true
}

func (b *Backend) OpenDirectory(p fs.Path) (fs.DirectoryBackend, bool) {
	name, ok := normalize(p)
	if !ok {
		return nil, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.dirs[name] {
		return nil, false
	}

	return &dirHandle{entries: b.listLocked(name)}, true
}

// listLocked snapshots the immediate children of a directory.
func (b *Backend) listLocked(dir string) []fs.Entry {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	var entries []fs.Entry

	for name, f := range b.files {
		if child, ok := immediateChild(name, prefix); ok {
			short, ext := fs.ShortNameOf(child)
			f.mu.RLock()
			size := uint64(len(f.data))
			f.mu.RUnlock()
			entries = append(entries, fs.Entry{
				Name:      child,
				ShortName: short,
				ShortExt:  ext,
				Size:      size,
			})
		}
	}

	for name := range b.dirs {
		if name == dir {
			continue
		}
		if child, ok := immediateChild(name, prefix); ok {
			short, ext := fs.ShortNameOf(child)
			entries = append(entries, fs.Entry{
				Name:       child,
				ShortName:  short,
				ShortExt:   ext,
				Attributes: fs.AttributeDirectory,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

func immediateChild(name string, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || rest == "" || strings.ContainsRune(rest, '/') {
		return "", false
	}

	return rest, true
}

func (b *Backend) DeleteFile(p fs.Path) bool {
	name, ok := normalize(p)
	if !ok {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.files[name]; !exists {
		return false
	}
	delete(b.files, name)

	return true
}

func (b *Backend) RenameFile(src fs.Path, dst fs.Path) bool {
	srcName, ok := normalize(src)
	if !ok {
		return false
	}
	dstName, ok := normalize(dst)
	if !ok {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, exists := b.files[srcName]
	if !exists {
		return false
	}
	if _, taken := b.files[dstName]; taken {
		return false
	}

	delete(b.files, srcName)
	b.files[dstName] = f

	return true
}

func (b *Backend) CreateDirectory(p fs.Path) bool {
	name, ok := normalize(p)
	if !ok {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dirs[name] {
		return false
	}
	if _, taken := b.files[name]; taken {
		return false
	}
	if parent := gopath.Dir(name); !b.dirs[parent] {
		return false
	}

	b.dirs[name] = true

	return true
}

func (b *Backend) DeleteDirectory(p fs.Path) bool {
	name, ok := normalize(p)
	if !ok || name == "/" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirs[name] {
		return false
	}

	prefix := name + "/"
	for child := range b.files {
		if strings.HasPrefix(child, prefix) {
			return false
		}
	}
	for child := range b.dirs {
		if strings.HasPrefix(child, prefix) {
			return false
		}
	}

	delete(b.dirs, name)

	return true
}

func (b *Backend) RenameDirectory(src fs.Path, dst fs.Path) bool {
	srcName, ok := normalize(src)
	if !ok || srcName == "/" {
		return false
	}
	dstName, ok := normalize(dst)
	if !ok {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirs[srcName] || b.dirs[dstName] {
		return false
	}

	srcPrefix := srcName + "/"

	var moved []string
	for name := range b.files {
		if strings.HasPrefix(name, srcPrefix) {
			moved = append(moved, name)
		}
	}
	for _, name := range moved {
		b.files[dstName+"/"+name[len(srcPrefix):]] = b.files[name]
		delete(b.files, name)
	}

	moved = moved[:0]
	for name := range b.dirs {
		if strings.HasPrefix(name, srcPrefix) {
			moved = append(moved, name)
		}
	}
	for _, name := range moved {
		b.dirs[dstName+"/"+name[len(srcPrefix):]] = true
		delete(b.dirs, name)
	}

	delete(b.dirs, srcName)
	b.dirs[dstName] = true

	return true
}

func (b *Backend) Read(offset uint64, dst []byte) uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return copyAt(dst, b.raw, offset)
}

func (b *Backend) Write(offset uint64, src []byte, _ bool) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.raw = storeAt(b.raw, offset, src)

	return uint32(len(src))
}

func (b *Backend) Size() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return uint64(len(b.raw))
}

func (b *Backend) SetSize(size uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.raw = resize(b.raw, size)
}

type fileHandle struct {
	f *fileData
}

func (h *fileHandle) Read(offset uint64, dst []byte) uint32 {
	h.f.mu.RLock()
	defer h.f.mu.RUnlock()

	return copyAt(dst, h.f.data, offset)
}

func (h *fileHandle) Write(offset uint64, src []byte, _ bool) uint32 {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()

	h.f.data = storeAt(h.f.data, offset, src)

	return uint32(len(src))
}

func (h *fileHandle) Size() uint64 {
	h.f.mu.RLock()
	defer h.f.mu.RUnlock()

	return uint64(len(h.f.data))
}

func (h *fileHandle) SetSize(size uint64) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()

	h.f.data = resize(h.f.data, size)
}

func (h *fileHandle) Close() bool {
	return true
}

// dirHandle carries a snapshot of the directory taken at open time;
// successive Read calls continue the enumeration.
type dirHandle struct {
	entries []fs.Entry
	pos     int
}

func (h *dirHandle) Read(max uint32) []fs.Entry {
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

func copyAt(dst []byte, src []byte, offset uint64) uint32 {
	if offset >= uint64(len(src)) {
		return 0
	}

	return uint32(copy(dst, src[offset:]))
}

func storeAt(data []byte, offset uint64, src []byte) []byte {
	if end := offset + uint64(len(src)); end > uint64(len(data)) {
		data = resize(data, end)
	}
	copy(data[offset:], src)

	return data
}

func resize(data []byte, size uint64) []byte {
	if size <= uint64(len(data)) {
		return data[:size]
	}

	grown := make([]byte, size)
	copy(grown, data)

	return grown
}
