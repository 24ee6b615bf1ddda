package archive

import (
	"encoding/binary"
	"testing"

	"github.com/ctremu/horizonfs/internal/fs"
	"github.com/ctremu/horizonfs/internal/ipc"
	"github.com/ctremu/horizonfs/internal/kernel"
	"github.com/ctremu/horizonfs/internal/memory"
	"github.com/ctremu/horizonfs/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageGuestBytes copies payload into guest memory at addr.
func stageGuestBytes(t *testing.T, m *Manager, addr uint32, payload []byte) {
	t.Helper()

	dst, err := m.memory.Slice(addr, uint32(len(payload)))
	require.NoError(t, err)
	copy(dst, payload)
}

// openTestFile mounts a save archive and opens a fresh writable file on it.
func openTestFile(t *testing.T, m *Manager) kernel.Handle {
	t.Helper()

	archive := mountSave(t, m)

	h, rc := m.OpenFileFromArchive(archive, fs.CharPath("/data.bin"),
		fs.ModeRead|fs.ModeWrite|fs.ModeCreate)
	require.Equal(t, result.Success, rc)

	return h
}

// TestSyncRequest_Fail_UnknownHandle tests that dispatch against an
// unknown handle mirrors the failure into the response word.
func TestSyncRequest_Fail_UnknownHandle(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	cb := ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileGetSize))

	rc := m.SyncRequest(kernel.Handle(0xABCD), cb)
	assert.Equal(t, result.InvalidHandle(result.ModuleFS), rc)
	assert.Equal(t, rc, ipc.Result(cb))
}

// TestSyncRequest_WriteThenRead tests the write/read round trip through
// guest memory against a file handle.
func TestSyncRequest_WriteThenRead(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x42}
	srcAddr := uint32(memory.FCRAMBase)
	dstAddr := uint32(memory.FCRAMBase + 0x1000)
	stageGuestBytes(t, m, srcAddr, payload)

	cb := ipc.NewBuffer()
	ipc.EncodeWriteRequest(cb, ipc.FileWrite, ipc.WriteRequest{
		Offset:  0,
		Length:  uint32(len(payload)),
		Flush:   true,
		Address: srcAddr,
	})
	require.Equal(t, result.Success, m.SyncRequest(h, cb))
	assert.Equal(t, result.Success, ipc.Result(cb))
	assert.Equal(t, uint32(len(payload)), ipc.BytesMoved(cb))

	cb = ipc.NewBuffer()
	ipc.EncodeReadRequest(cb, ipc.FileRead, ipc.ReadRequest{
		Offset:  0,
		Length:  uint32(len(payload)),
		Address: dstAddr,
	})
	require.Equal(t, result.Success, m.SyncRequest(h, cb))
	assert.Equal(t, uint32(len(payload)), ipc.BytesMoved(cb))

	got, err := m.memory.Slice(dstAddr, uint32(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestSyncRequest_SetSizeGetSize tests that file sizes above 4 GiB survive
// the two-word split.
func TestSyncRequest_SetSizeGetSize(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	const size = uint64(0x1_0000_0005)

	cb := ipc.NewBuffer()
	ipc.EncodeSetSize(cb, ipc.FileSetSize, size)
	require.Equal(t, result.Success, m.SyncRequest(h, cb))

	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileGetSize))
	require.Equal(t, result.Success, m.SyncRequest(h, cb))
	assert.Equal(t, size, ipc.Size64(cb))
}

// TestSyncRequest_Fail_BadAddress tests that an unmapped guest address
// fails the transfer without touching the backend.
func TestSyncRequest_Fail_BadAddress(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	cb := ipc.NewBuffer()
	ipc.EncodeReadRequest(cb, ipc.FileRead, ipc.ReadRequest{
		Offset:  0,
		Length:  16,
		Address: 0x1000, // below FCRAM
	})

	rc := m.SyncRequest(h, cb)
	assert.Equal(t, result.InvalidAddress(result.ModuleFS), rc)
	assert.Equal(t, rc, ipc.Result(cb))
}

// TestSyncRequest_Fail_UnknownCommand tests that an unrecognized command
// reports unimplemented and leaves the object usable.
func TestSyncRequest_Fail_UnknownCommand(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	cb := ipc.NewBuffer()
	ipc.SetCommand(cb, 0xFFFF0000)

	rc := m.SyncRequest(h, cb)
	assert.Equal(t, result.Unimplemented(result.ModuleFS), rc)
	assert.Equal(t, rc, ipc.Result(cb))

	// The handle survives the failed dispatch.
	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileGetSize))
	assert.Equal(t, result.Success, m.SyncRequest(h, cb))
}

// TestSyncRequest_RecognizedStubs tests that known-but-unsupported file
// commands report unimplemented.
func TestSyncRequest_RecognizedStubs(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	for _, cmd := range []ipc.FileCommand{
		ipc.FileOpenSubFile, ipc.FileGetAttributes, ipc.FileSetAttributes,
	} {
		cb := ipc.NewBuffer()
		ipc.SetCommand(cb, uint32(cmd))

		rc := m.SyncRequest(h, cb)
		assert.Equal(t, result.Unimplemented(result.ModuleFS), rc)
		assert.Equal(t, rc, ipc.Result(cb))
	}
}

// TestSyncRequest_Acknowledged tests the commands that succeed without
// side effects.
func TestSyncRequest_Acknowledged(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	for _, cmd := range []ipc.FileCommand{ipc.FileControl, ipc.FileDummy1, ipc.FileFlush} {
		cb := ipc.NewBuffer()
		ipc.SetCommand(cb, uint32(cmd))

		require.Equal(t, result.Success, m.SyncRequest(h, cb))
		assert.Equal(t, result.Success, ipc.Result(cb))
	}
}

// TestSyncRequest_CloseFile tests that closing a file destroys its handle
// and later dispatch observes the staleness.
func TestSyncRequest_CloseFile(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	h := openTestFile(t, m)

	cb := ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileClose))
	require.Equal(t, result.Success, m.SyncRequest(h, cb))

	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileGetSize))
	rc := m.SyncRequest(h, cb)
	assert.Equal(t, result.InvalidHandle(result.ModuleFS), rc)
	assert.Equal(t, rc, ipc.Result(cb))
}

// TestSyncRequest_ArchiveRawAccess tests dispatching read, write and size
// commands against the archive handle itself.
func TestSyncRequest_ArchiveRawAccess(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	archive := mountSave(t, m)

	payload := []byte{1, 2, 3, 4}
	addr := uint32(memory.FCRAMBase + 0x2000)
	stageGuestBytes(t, m, addr, payload)

	cb := ipc.NewBuffer()
	ipc.EncodeWriteRequest(cb, ipc.FileWrite, ipc.WriteRequest{
		Offset:  8,
		Length:  uint32(len(payload)),
		Address: addr,
	})
	require.Equal(t, result.Success, m.SyncRequest(archive, cb))
	assert.Equal(t, uint32(len(payload)), ipc.BytesMoved(cb))

	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileGetSize))
	require.Equal(t, result.Success, m.SyncRequest(archive, cb))
	assert.Equal(t, uint64(12), ipc.Size64(cb))
}

// TestSyncRequest_ArchiveClose tests that the close command unmounts the
// archive type while the handle itself stays dispatchable.
func TestSyncRequest_ArchiveClose(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	archive := mountSave(t, m)

	cb := ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileClose))
	require.Equal(t, result.Success, m.SyncRequest(archive, cb))

	_, rc := m.OpenArchive(fs.ArchiveSaveData)
	assert.Equal(t, result.NotFound(result.ModuleFS), rc)

	// Kernel object outlives the registry entry.
	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileGetSize))
	assert.Equal(t, result.Success, m.SyncRequest(archive, cb))

	// A second close has no registry entry left to remove.
	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.FileClose))
	rc = m.SyncRequest(archive, cb)
	assert.Equal(t, result.InvalidHandle(result.ModuleFS), rc)
	assert.Equal(t, rc, ipc.Result(cb))
}

// TestSyncRequest_DirectoryRead tests entry enumeration into guest memory
// with the fixed wire record size.
func TestSyncRequest_DirectoryRead(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	archive := mountSave(t, m)

	for _, name := range []string{"/apple", "/banana", "/cherry"} {
		_, rc := m.OpenFileFromArchive(archive, fs.CharPath(name), fs.ModeCreate)
		require.Equal(t, result.Success, rc)
	}

	dirHandle, rc := m.OpenDirectoryFromArchive(archive, fs.CharPath("/"))
	require.Equal(t, result.Success, rc)

	addr := uint32(memory.FCRAMBase + 0x4000)

	cb := ipc.NewBuffer()
	ipc.EncodeDirectoryRead(cb, ipc.DirectoryReadRequest{MaxCount: 2, Address: addr})
	require.Equal(t, result.Success, m.SyncRequest(dirHandle, cb))
	assert.Equal(t, uint32(2), ipc.EntriesRead(cb))

	records, err := m.memory.Slice(addr, 2*fs.EntrySize)
	require.NoError(t, err)

	// First record: UTF-16 name, validity byte, size.
	assert.Equal(t, uint16('a'), binary.LittleEndian.Uint16(records[0:]))
	assert.Equal(t, byte(1), records[0x21A])
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(records[0x220:]))

	// Second record starts one full stride later.
	assert.Equal(t, uint16('b'), binary.LittleEndian.Uint16(records[fs.EntrySize:]))

	// Enumeration continues, then drains.
	cb = ipc.NewBuffer()
	ipc.EncodeDirectoryRead(cb, ipc.DirectoryReadRequest{MaxCount: 2, Address: addr})
	require.Equal(t, result.Success, m.SyncRequest(dirHandle, cb))
	assert.Equal(t, uint32(1), ipc.EntriesRead(cb))

	cb = ipc.NewBuffer()
	ipc.EncodeDirectoryRead(cb, ipc.DirectoryReadRequest{MaxCount: 2, Address: addr})
	require.Equal(t, result.Success, m.SyncRequest(dirHandle, cb))
	assert.Equal(t, uint32(0), ipc.EntriesRead(cb))
}

// TestSyncRequest_DirectoryRead_Fail_SpanOverflow tests that an entry
// count whose byte span exceeds the address space is rejected.
func TestSyncRequest_DirectoryRead_Fail_SpanOverflow(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	archive := mountSave(t, m)

	dirHandle, rc := m.OpenDirectoryFromArchive(archive, fs.CharPath("/"))
	require.Equal(t, result.Success, rc)

	cb := ipc.NewBuffer()
	ipc.EncodeDirectoryRead(cb, ipc.DirectoryReadRequest{
		MaxCount: 0xFFFFFFFF,
		Address:  uint32(memory.FCRAMBase),
	})

	rc = m.SyncRequest(dirHandle, cb)
	assert.Equal(t, result.InvalidAddress(result.ModuleFS), rc)
	assert.Equal(t, rc, ipc.Result(cb))
}

// TestSyncRequest_DirectoryClose tests that closing a directory destroys
// its handle.
func TestSyncRequest_DirectoryClose(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	archive := mountSave(t, m)

	dirHandle, rc := m.OpenDirectoryFromArchive(archive, fs.CharPath("/"))
	require.Equal(t, result.Success, rc)

	cb := ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.DirectoryClose))
	require.Equal(t, result.Success, m.SyncRequest(dirHandle, cb))

	cb = ipc.NewBuffer()
	ipc.SetCommand(cb, uint32(ipc.DirectoryRead))
	assert.Equal(t, result.InvalidHandle(result.ModuleFS), m.SyncRequest(dirHandle, cb))
}

// TestWaitSynchronization_Unsupported tests that waiting is refused for
// every resource kind.
func TestWaitSynchronization_Unsupported(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	archive := mountSave(t, m)

	file, rc := m.OpenFileFromArchive(archive, fs.CharPath("/f"), fs.ModeCreate)
	require.Equal(t, result.Success, rc)

	assert.Equal(t, result.InvalidHandle(result.ModuleFS),
		m.WaitSynchronization(kernel.Handle(0xC0DE)))
	assert.Equal(t, result.Unimplemented(result.ModuleFS), m.WaitSynchronization(archive))
	assert.Equal(t, result.Unimplemented(result.ModuleFS), m.WaitSynchronization(file))
}
