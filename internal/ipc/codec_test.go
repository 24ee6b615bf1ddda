package ipc_test

import (
	"testing"

	"github.com/ctremu/horizonfs/internal/ipc"
	"github.com/ctremu/horizonfs/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadRequest_Layout tests the word positions of the Read command.
func TestReadRequest_Layout(t *testing.T) {
	t.Parallel()

	cb := ipc.NewBuffer()
	ipc.EncodeReadRequest(cb, ipc.FileRead, ipc.ReadRequest{
		Offset:  0x1_0000_0005,
		Length:  0x40,
		Address: 0x2000_0000,
	})

	assert.Equal(t, uint32(ipc.FileRead), cb[0])
	assert.Equal(t, uint32(0x00000005), cb[1])
	assert.Equal(t, uint32(0x00000001), cb[2])
	assert.Equal(t, uint32(0x40), cb[3])
	assert.Equal(t, uint32(0x2000_0000), cb[5])

	req := ipc.DecodeReadRequest(cb)
	assert.Equal(t, uint64(0x1_0000_0005), req.Offset)
	assert.Equal(t, uint32(0x40), req.Length)
	assert.Equal(t, uint32(0x2000_0000), req.Address)
}

// TestWriteRequest_Layout tests the word positions of the Write command,
// including the flush flag and the shifted address slot.
func TestWriteRequest_Layout(t *testing.T) {
	t.Parallel()

	cb := ipc.NewBuffer()
	ipc.EncodeWriteRequest(cb, ipc.FileWrite, ipc.WriteRequest{
		Offset:  0x8000_0001,
		Length:  0x10,
		Flush:   true,
		Address: 0x2100_0000,
	})

	assert.Equal(t, uint32(ipc.FileWrite), cb[0])
	assert.Equal(t, uint32(0x8000_0001), cb[1])
	assert.Equal(t, uint32(0), cb[2])
	assert.Equal(t, uint32(0x10), cb[3])
	assert.Equal(t, uint32(1), cb[4])
	assert.Equal(t, uint32(0x2100_0000), cb[6])

	req := ipc.DecodeWriteRequest(cb)
	assert.Equal(t, uint64(0x8000_0001), req.Offset)
	assert.True(t, req.Flush)
	assert.Equal(t, uint32(0x2100_0000), req.Address)
}

// TestSize64_LosslessSplit tests that 64-bit sizes spanning the 32-bit
// boundary split and reassemble losslessly.
func TestSize64_LosslessSplit(t *testing.T) {
	t.Parallel()

	cb := ipc.NewBuffer()
	ipc.WriteSize64(cb, 0x1_0000_0005)

	assert.Equal(t, uint32(0x00000005), cb[2])
	assert.Equal(t, uint32(0x00000001), cb[3])
	assert.Equal(t, uint64(0x1_0000_0005), ipc.Size64(cb))

	ipc.EncodeSetSize(cb, ipc.FileSetSize, 0xFFFF_FFFF_0000_0001)
	require.Equal(t, uint64(0xFFFF_FFFF_0000_0001), ipc.DecodeSetSize(cb))
}

// TestDirectoryRead_Layout tests the word positions of the directory Read
// command.
func TestDirectoryRead_Layout(t *testing.T) {
	t.Parallel()

	cb := ipc.NewBuffer()
	ipc.EncodeDirectoryRead(cb, ipc.DirectoryReadRequest{
		MaxCount: 12,
		Address:  0x2000_4000,
	})

	assert.Equal(t, uint32(ipc.DirectoryRead), cb[0])
	assert.Equal(t, uint32(12), cb[1])
	assert.Equal(t, uint32(0x2000_4000), cb[3])

	req := ipc.DecodeDirectoryRead(cb)
	assert.Equal(t, uint32(12), req.MaxCount)
	assert.Equal(t, uint32(0x2000_4000), req.Address)

	ipc.WriteEntriesRead(cb, 7)
	assert.Equal(t, uint32(7), ipc.EntriesRead(cb))
}

// TestWriteResult_ResponseWord tests that result codes land in word 1.
func TestWriteResult_ResponseWord(t *testing.T) {
	t.Parallel()

	cb := ipc.NewBuffer()

	rc := result.Unimplemented(result.ModuleFS)
	ipc.WriteResult(cb, rc)

	assert.Equal(t, uint32(rc), cb[1])
	assert.Equal(t, rc, ipc.Result(cb))

	ipc.WriteResult(cb, result.Success)
	assert.Equal(t, uint32(0), cb[1])
}

// TestCommandWords_GuestABI tests the fixed command word values.
func TestCommandWords_GuestABI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0x080200C2), uint32(ipc.FileRead))
	assert.Equal(t, uint32(0x08030102), uint32(ipc.FileWrite))
	assert.Equal(t, uint32(0x08040000), uint32(ipc.FileGetSize))
	assert.Equal(t, uint32(0x08050080), uint32(ipc.FileSetSize))
	assert.Equal(t, uint32(0x08080000), uint32(ipc.FileClose))
	assert.Equal(t, uint32(0x08010042), uint32(ipc.DirectoryRead))
	assert.Equal(t, uint32(0x08020000), uint32(ipc.DirectoryClose))
}
