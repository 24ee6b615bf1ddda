// Package ipc implements the guest IPC command buffer as a binary wire
// format: the command word enumerations and a pure codec for the fixed
// per-command word layouts. Encoding and decoding are free of any backend
// calls so the protocol can be tested on its own.
package ipc

// FileCommand enumerates the command words understood by file and archive
// handles. The values combine an opcode with a static description of the
// parameter counts and are fixed by the guest ABI.
type FileCommand uint32

const (
	FileDummy1        FileCommand = 0x000100C6
	FileControl       FileCommand = 0x040100C4
	FileOpenSubFile   FileCommand = 0x08010100
	FileRead          FileCommand = 0x080200C2
	FileWrite         FileCommand = 0x08030102
	FileGetSize       FileCommand = 0x08040000
	FileSetSize       FileCommand = 0x08050080
	FileGetAttributes FileCommand = 0x08060000
	FileSetAttributes FileCommand = 0x08070040
	FileClose         FileCommand = 0x08080000
	FileFlush         FileCommand = 0x08090000
)

// DirectoryCommand enumerates the command words understood by directory
// handles.
type DirectoryCommand uint32

const (
	DirectoryDummy1  DirectoryCommand = 0x000100C6
	DirectoryControl DirectoryCommand = 0x040100C4
	DirectoryRead    DirectoryCommand = 0x08010042
	DirectoryClose   DirectoryCommand = 0x08020000
)
