package archive

import (
	"log/slog"
	"math"

	"github.com/ctremu/horizonfs/internal/fs"
	"github.com/ctremu/horizonfs/internal/ipc"
	"github.com/ctremu/horizonfs/internal/kernel"
	"github.com/ctremu/horizonfs/internal/memory"
	"github.com/ctremu/horizonfs/internal/result"
)

// SyncRequest decodes one IPC command buffer addressed to a resource
// handle, executes the matching backend operation and writes the response
// in place. Dispatch is a stateless decode/execute/encode cycle matched on
// the object's kind tag; on any error the code is both returned and
// mirrored into the response word so the guest observes the same failure.
func (m *Manager) SyncRequest(h kernel.Handle, cb ipc.Buffer) result.Code {
	obj, ok := m.pool.Lookup(h)
	if !ok {
		slog.Error("Sync request against unknown handle.", "handle", h)
		rc := result.InvalidHandle(result.ModuleFS)
		ipc.WriteResult(cb, rc)

		return rc
	}

	switch o := obj.(type) {
	case *Archive:
		return m.syncArchive(o, cb)
	case *File:
		return m.syncFile(h, o, cb)
	case *Directory:
		return m.syncDirectory(h, o, cb)
	default:
		slog.Error("Sync request against non-filesystem object.",
			"handle", h, "type", obj.TypeName())
		rc := result.InvalidHandle(result.ModuleFS)
		ipc.WriteResult(cb, rc)

		return rc
	}
}

// WaitSynchronization is deliberately unsupported for every filesystem
// resource kind: callers that depend on synchronizable handles fail loudly
// instead of deadlocking silently.
func (m *Manager) WaitSynchronization(h kernel.Handle) result.Code {
	obj, ok := m.pool.Lookup(h)
	if !ok {
		return result.InvalidHandle(result.ModuleFS)
	}

	slog.Error("WaitSynchronization is not implemented.",
		"type", obj.TypeName(), "name", obj.Name())

	return result.Unimplemented(result.ModuleFS)
}

func (m *Manager) syncArchive(a *Archive, cb ipc.Buffer) result.Code {
	switch cmd := ipc.FileCommand(ipc.Command(cb)); cmd {
	case ipc.FileControl, ipc.FileDummy1:
		// acknowledged, nothing to do

	case ipc.FileRead:
		req := ipc.DecodeReadRequest(cb)
		slog.Debug("Read", "type", a.TypeName(), "name", a.Name(),
			"offset", req.Offset, "length", req.Length, "address", req.Address)

		dst, err := m.memory.Slice(req.Address, req.Length)
		if err != nil {
			return m.failAddress(a, cb, err)
		}
		ipc.WriteBytesMoved(cb, a.backend.Read(req.Offset, dst))

	case ipc.FileWrite:
		req := ipc.DecodeWriteRequest(cb)
		slog.Debug("Write", "type", a.TypeName(), "name", a.Name(),
			"offset", req.Offset, "length", req.Length, "flush", req.Flush, "address", req.Address)

		src, err := m.memory.Slice(req.Address, req.Length)
		if err != nil {
			return m.failAddress(a, cb, err)
		}
		ipc.WriteBytesMoved(cb, a.backend.Write(req.Offset, src, req.Flush))

	case ipc.FileGetSize:
		ipc.WriteSize64(cb, a.backend.Size())

	case ipc.FileSetSize:
		a.backend.SetSize(ipc.DecodeSetSize(cb))

	case ipc.FileFlush:
		// backends commit on write; the command is acknowledged

	case ipc.FileClose:
		// Close on an archive unmounts the registry entry only; the object
		// persists for guests that still hold its handle.
		slog.Debug("Close", "type", a.TypeName(), "name", a.Name())
		if rc := m.CloseArchive(a.backend.IDCode()); rc.IsError() {
			ipc.WriteResult(cb, rc)

			return rc
		}

	case ipc.FileOpenSubFile, ipc.FileGetAttributes, ipc.FileSetAttributes:
		slog.Error("Unsupported archive command.", "command", uint32(cmd), "name", a.Name())
		rc := result.Unimplemented(result.ModuleFS)
		ipc.WriteResult(cb, rc)

		return rc

	default:
		return m.failUnknown(a, cb, uint32(cmd))
	}

	ipc.WriteResult(cb, result.Success)

	return result.Success
}

func (m *Manager) syncFile(h kernel.Handle, f *File, cb ipc.Buffer) result.Code {
	switch cmd := ipc.FileCommand(ipc.Command(cb)); cmd {
	case ipc.FileControl, ipc.FileDummy1:
		// acknowledged, nothing to do

	case ipc.FileRead:
		req := ipc.DecodeReadRequest(cb)
		slog.Debug("Read", "type", f.TypeName(), "name", f.Name(),
			"offset", req.Offset, "length", req.Length, "address", req.Address)

		dst, err := m.memory.Slice(req.Address, req.Length)
		if err != nil {
			return m.failAddress(f, cb, err)
		}
		ipc.WriteBytesMoved(cb, f.backend.Read(req.Offset, dst))

	case ipc.FileWrite:
		req := ipc.DecodeWriteRequest(cb)
		slog.Debug("Write", "type", f.TypeName(), "name", f.Name(),
			"offset", req.Offset, "length", req.Length, "flush", req.Flush, "address", req.Address)

		src, err := m.memory.Slice(req.Address, req.Length)
		if err != nil {
			return m.failAddress(f, cb, err)
		}
		ipc.WriteBytesMoved(cb, f.backend.Write(req.Offset, src, req.Flush))

	case ipc.FileGetSize:
		slog.Debug("GetSize", "type", f.TypeName(), "name", f.Name())
		ipc.WriteSize64(cb, f.backend.Size())

	case ipc.FileSetSize:
		size := ipc.DecodeSetSize(cb)
		slog.Debug("SetSize", "type", f.TypeName(), "name", f.Name(), "size", size)
		f.backend.SetSize(size)

	case ipc.FileFlush:
		// per-write flush flag covers stable storage; acknowledged

	case ipc.FileClose:
		slog.Debug("Close", "type", f.TypeName(), "name", f.Name())
		f.backend.Close()
		if rc := kernel.Destroy[*File](m.pool, h); rc.IsError() {
			ipc.WriteResult(cb, rc)

			return rc
		}

	case ipc.FileOpenSubFile, ipc.FileGetAttributes, ipc.FileSetAttributes:
		slog.Error("Unsupported file command.", "command", uint32(cmd), "name", f.Name())
		rc := result.Unimplemented(result.ModuleFS)
		ipc.WriteResult(cb, rc)

		return rc

	default:
		return m.failUnknown(f, cb, uint32(cmd))
	}

	ipc.WriteResult(cb, result.Success)

	return result.Success
}

func (m *Manager) syncDirectory(h kernel.Handle, d *Directory, cb ipc.Buffer) result.Code {
	switch cmd := ipc.DirectoryCommand(ipc.Command(cb)); cmd {
	case ipc.DirectoryControl, ipc.DirectoryDummy1:
		// acknowledged, nothing to do

	case ipc.DirectoryRead:
		req := ipc.DecodeDirectoryRead(cb)
		slog.Debug("Read", "type", d.TypeName(), "name", d.Name(),
			"count", req.MaxCount, "address", req.Address)

		span := uint64(req.MaxCount) * fs.EntrySize
		if span > math.MaxUint32 {
			return m.failAddress(d, cb, memory.ErrOutOfRange)
		}

		dst, err := m.memory.Slice(req.Address, uint32(span))
		if err != nil {
			return m.failAddress(d, cb, err)
		}

		entries := d.backend.Read(req.MaxCount)
		for i, entry := range entries {
			entry.EncodeTo(dst[i*fs.EntrySize:])
		}
		ipc.WriteEntriesRead(cb, uint32(len(entries)))

	case ipc.DirectoryClose:
		slog.Debug("Close", "type", d.TypeName(), "name", d.Name())
		d.backend.Close()
		if rc := kernel.Destroy[*Directory](m.pool, h); rc.IsError() {
			ipc.WriteResult(cb, rc)

			return rc
		}

	default:
		return m.failUnknown(d, cb, uint32(cmd))
	}

	ipc.WriteResult(cb, result.Success)

	return result.Success
}

func (m *Manager) failUnknown(obj kernel.Object, cb ipc.Buffer, cmd uint32) result.Code {
	slog.Error("Unknown command.", "command", cmd, "type", obj.TypeName(), "name", obj.Name())

	rc := result.Unimplemented(result.ModuleFS)
	ipc.WriteResult(cb, rc)

	return rc
}

func (m *Manager) failAddress(obj kernel.Object, cb ipc.Buffer, err error) result.Code {
	slog.Error("Cannot resolve guest address.", "type", obj.TypeName(), "name", obj.Name(), "err", err)

	rc := result.InvalidAddress(result.ModuleFS)
	ipc.WriteResult(cb, rc)

	return rc
}
