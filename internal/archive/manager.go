package archive

import (
	"log/slog"
	"sync"

	"github.com/ctremu/horizonfs/internal/config"
	"github.com/ctremu/horizonfs/internal/fs"
	"github.com/ctremu/horizonfs/internal/fs/memfs"
	"github.com/ctremu/horizonfs/internal/fs/sdmc"
	"github.com/ctremu/horizonfs/internal/kernel"
	"github.com/ctremu/horizonfs/internal/memory"
	"github.com/ctremu/horizonfs/internal/result"
)

// Manager is the process-scoped context of the filesystem service layer.
// It owns the archive registry and dispatches against objects in its pool;
// one mutex guards the registry, the pool carries its own.
type Manager struct {
	pool   *kernel.Pool
	memory memory.Accessor

	mu       sync.Mutex
	registry map[fs.ArchiveID]kernel.Handle
}

func NewManager(pool *kernel.Pool, accessor memory.Accessor) *Manager {
	return &Manager{
		pool:     pool,
		memory:   accessor,
		registry: make(map[fs.ArchiveID]kernel.Handle),
	}
}

// Pool returns the kernel object pool this manager dispatches against.
func (m *Manager) Pool() *kernel.Pool {
	return m.pool
}

// OpenArchive looks up the handle of the mounted archive of the given
// type. It never mutates the registry.
func (m *Manager) OpenArchive(id fs.ArchiveID) (kernel.Handle, result.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.registry[id]
	if !ok {
		return kernel.HandleInvalid, result.NotFound(result.ModuleFS)
	}

	return h, result.Success
}

// CloseArchive removes the registry entry for the given type. The Archive
// object itself is not destroyed; its lifetime is decoupled from registry
// membership so guest-held archive handles stay valid across unmount and
// remount cycles.
func (m *Manager) CloseArchive(id fs.ArchiveID) result.Code {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry[id]; !ok {
		slog.Error("Cannot close archive, not mounted.", "archive", id)

		return result.InvalidHandle(result.ModuleFS)
	}

	delete(m.registry, id)
	slog.Info("Closed archive.", "archive", id)

	return result.Success
}

// MountArchive registers an archive's handle under its backend's type
// identifier. Mounting a second archive of an already-mounted type is
// rejected without side effects.
func (m *Manager) MountArchive(a *Archive, h kernel.Handle) result.Code {
	id := a.backend.IDCode()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry[id]; ok {
		slog.Error("Cannot mount two archives with the same ID code.", "archive", id)

		return result.AlreadyExists(result.ModuleFS)
	}

	m.registry[id] = h
	slog.Info("Mounted archive.", "archive", id, "name", a.Name())

	return result.Success
}

// CreateArchive allocates an Archive object owning the backend and mounts
// it. On mount failure the object stays allocated in the pool; the orphan
// is an acknowledged lifetime gap, kept rather than silently collected.
func (m *Manager) CreateArchive(backend fs.ArchiveBackend, name string) (kernel.Handle, result.Code) {
	a := &Archive{
		name:    name,
		backend: backend,
	}
	h := m.pool.Create(a)

	if rc := m.MountArchive(a, h); rc.IsError() {
		return h, rc
	}

	return h, result.Success
}

// OpenFileFromArchive asks the archive's backend to open path in the given
// mode and wraps the result into a File object. Binary paths short-circuit
// and return the archive's own handle: raw-path access goes through the
// archive object itself, a compatibility shim for guests that treat the
// archive as a file.
func (m *Manager) OpenFileFromArchive(archiveHandle kernel.Handle, path fs.Path, mode fs.Mode) (kernel.Handle, result.Code) {
	if path.IsBinary() {
		return archiveHandle, result.Success
	}

	a, ok := kernel.Get[*Archive](m.pool, archiveHandle)
	if !ok {
		return kernel.HandleInvalid, result.InvalidHandle(result.ModuleFS)
	}

	backend, ok := a.backend.OpenFile(path, mode)
	if !ok {
		return kernel.HandleInvalid, result.NotFound(result.ModuleFS)
	}

	f := &File{
		path:    path,
		backend: backend,
	}

	return m.pool.Create(f), result.Success
}

// OpenDirectoryFromArchive is the directory counterpart of
// OpenFileFromArchive, without the binary-path shim.
func (m *Manager) OpenDirectoryFromArchive(archiveHandle kernel.Handle, path fs.Path) (kernel.Handle, result.Code) {
	a, ok := kernel.Get[*Archive](m.pool, archiveHandle)
	if !ok {
		return kernel.HandleInvalid, result.InvalidHandle(result.ModuleFS)
	}

	backend, ok := a.backend.OpenDirectory(path)
	if !ok {
		return kernel.HandleInvalid, result.NotFound(result.ModuleFS)
	}

	d := &Directory{
		path:    path,
		backend: backend,
	}

	return m.pool.Create(d), result.Success
}

// DeleteFileFromArchive deletes a file through the archive's backend.
func (m *Manager) DeleteFileFromArchive(archiveHandle kernel.Handle, path fs.Path) result.Code {
	a, ok := kernel.GetFast[*Archive](m.pool, archiveHandle)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}

	if a.backend.DeleteFile(path) {
		return result.Success
	}

	return result.Canceled(result.ModuleFS)
}

// CreateDirectoryFromArchive creates a directory through the archive's
// backend.
func (m *Manager) CreateDirectoryFromArchive(archiveHandle kernel.Handle, path fs.Path) result.Code {
	a, ok := kernel.GetFast[*Archive](m.pool, archiveHandle)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}

	if a.backend.CreateDirectory(path) {
		return result.Success
	}

	return result.Canceled(result.ModuleFS)
}

// DeleteDirectoryFromArchive deletes a directory through the archive's
// backend.
func (m *Manager) DeleteDirectoryFromArchive(archiveHandle kernel.Handle, path fs.Path) result.Code {
	a, ok := kernel.GetFast[*Archive](m.pool, archiveHandle)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}

	if a.backend.DeleteDirectory(path) {
		return result.Success
	}

	return result.Canceled(result.ModuleFS)
}

// RenameFileBetweenArchives renames a file when source and destination
// resolve to the same archive object. Cross-archive renames are not
// implemented and report as such; a declined same-archive rename reports a
// nothing-happened status instead.
func (m *Manager) RenameFileBetweenArchives(srcArchive kernel.Handle, srcPath fs.Path,
	dstArchive kernel.Handle, dstPath fs.Path,
) result.Code {
	src, ok := kernel.GetFast[*Archive](m.pool, srcArchive)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}
	dst, ok := kernel.GetFast[*Archive](m.pool, dstArchive)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}

	if src != dst {
		return result.Unimplemented(result.ModuleFS)
	}

	if src.backend.RenameFile(srcPath, dstPath) {
		return result.Success
	}

	return result.NothingHappened(result.ModuleFS)
}

// RenameDirectoryBetweenArchives is the directory counterpart of
// RenameFileBetweenArchives, with the same same-archive restriction.
func (m *Manager) RenameDirectoryBetweenArchives(srcArchive kernel.Handle, srcPath fs.Path,
	dstArchive kernel.Handle, dstPath fs.Path,
) result.Code {
	src, ok := kernel.GetFast[*Archive](m.pool, srcArchive)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}
	dst, ok := kernel.GetFast[*Archive](m.pool, dstArchive)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}

	if src != dst {
		return result.Unimplemented(result.ModuleFS)
	}

	if src.backend.RenameDirectory(srcPath, dstPath) {
		return result.Success
	}

	return result.NothingHappened(result.ModuleFS)
}

// Init clears the registry and constructs and mounts each known backend
// type. A backend that fails to initialize is logged and left absent from
// the registry; it is never fatal.
func (m *Manager) Init(settings config.Settings) {
	m.mu.Lock()
	m.registry = make(map[fs.ArchiveID]kernel.Handle)
	m.mu.Unlock()

	if settings.SDMCRoot != "" {
		backend := sdmc.New(settings.SDMCRoot)
		if err := backend.Initialize(); err != nil {
			slog.Error("Cannot initialize SDMC archive.", "root", settings.SDMCRoot, "err", err)
		} else if _, rc := m.CreateArchive(backend, "SDMC"); rc.IsError() {
			slog.Error("Cannot mount SDMC archive.", "rc", rc)
		}
	}

	if settings.MountMemfs {
		if _, rc := m.CreateArchive(memfs.New(fs.ArchiveSaveData), "SaveData"); rc.IsError() {
			slog.Error("Cannot mount in-memory save archive.", "rc", rc)
		}
	}
}

// Shutdown clears the registry. Objects stay in the pool, mirroring the
// close-versus-destroy split of CloseArchive.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry = make(map[fs.ArchiveID]kernel.Handle)
}
