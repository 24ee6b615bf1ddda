package ipc

import "github.com/ctremu/horizonfs/internal/result"

// BufferWords is the fixed command buffer length in 32-bit words.
const BufferWords = 64

// Buffer is one IPC request/response in place. Word 0 holds the command
// word; word 1 conventionally holds the result code on return. 64-bit
// values occupy two consecutive words, low word first.
type Buffer []uint32

func NewBuffer() Buffer {
	return make(Buffer, BufferWords)
}

// Command returns the raw command word.
func Command(b Buffer) uint32 {
	return b[0]
}

func SetCommand(b Buffer, cmd uint32) {
	b[0] = cmd
}

// Result returns the code stored in the response word.
func Result(b Buffer) result.Code {
	return result.Code(b[1])
}

// WriteResult mirrors a result code into the response word so the guest
// observes the same outcome as the host-side caller.
func WriteResult(b Buffer, code result.Code) {
	b[1] = uint32(code)
}

// ReadRequest is the decoded form of a file or archive Read command:
// [cmd, offset_lo, offset_hi, length, _, address].
type ReadRequest struct {
	Offset  uint64
	Length  uint32
	Address uint32
}

func DecodeReadRequest(b Buffer) ReadRequest {
	return ReadRequest{
		Offset:  uint64(b[1]) | uint64(b[2])<<32,
		Length:  b[3],
		Address: b[5],
	}
}

func EncodeReadRequest(b Buffer, cmd FileCommand, req ReadRequest) {
	b[0] = uint32(cmd)
	b[1] = uint32(req.Offset)
	b[2] = uint32(req.Offset >> 32)
	b[3] = req.Length
	b[5] = req.Address
}

// WriteRequest is the decoded form of a file or archive Write command:
// [cmd, offset_lo, offset_hi, length, flush, _, address].
type WriteRequest struct {
	Offset  uint64
	Length  uint32
	Flush   bool
	Address uint32
}

func DecodeWriteRequest(b Buffer) WriteRequest {
	return WriteRequest{
		Offset:  uint64(b[1]) | uint64(b[2])<<32,
		Length:  b[3],
		Flush:   b[4] != 0,
		Address: b[6],
	}
}

func EncodeWriteRequest(b Buffer, cmd FileCommand, req WriteRequest) {
	b[0] = uint32(cmd)
	b[1] = uint32(req.Offset)
	b[2] = uint32(req.Offset >> 32)
	b[3] = req.Length
	if req.Flush {
		b[4] = 1
	} else {
		b[4] = 0
	}
	b[6] = req.Address
}

// WriteBytesMoved stores the byte count of a completed Read or Write.
func WriteBytesMoved(b Buffer, n uint32) {
	b[2] = n
}

func BytesMoved(b Buffer) uint32 {
	return b[2]
}

// DecodeSetSize reassembles the 64-bit size argument of a SetSize command.
func DecodeSetSize(b Buffer) uint64 {
	return uint64(b[1]) | uint64(b[2])<<32
}

func EncodeSetSize(b Buffer, cmd FileCommand, size uint64) {
	b[0] = uint32(cmd)
	b[1] = uint32(size)
	b[2] = uint32(size >> 32)
}

// WriteSize64 splits a 64-bit size across the two response words, low word
// first. The split must be lossless for values beyond the 32-bit boundary.
func WriteSize64(b Buffer, size uint64) {
	b[2] = uint32(size)
	b[3] = uint32(size >> 32)
}

func Size64(b Buffer) uint64 {
	return uint64(b[2]) | uint64(b[3])<<32
}

// DirectoryReadRequest is the decoded form of a directory Read command:
// [cmd, max_count, _, address].
type DirectoryReadRequest struct {
	MaxCount uint32
	Address  uint32
}

func DecodeDirectoryRead(b Buffer) DirectoryReadRequest {
	return DirectoryReadRequest{
		MaxCount: b[1],
		Address:  b[3],
	}
}

func EncodeDirectoryRead(b Buffer, req DirectoryReadRequest) {
	b[0] = uint32(DirectoryRead)
	b[1] = req.MaxCount
	b[3] = req.Address
}

// WriteEntriesRead stores the number of directory entries produced by a
// directory Read.
func WriteEntriesRead(b Buffer, n uint32) {
	b[2] = n
}

func EntriesRead(b Buffer) uint32 {
	return b[2]
}
