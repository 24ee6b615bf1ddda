package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ctremu/horizonfs/internal/archive"
	"github.com/ctremu/horizonfs/internal/fs"
	"github.com/ctremu/horizonfs/internal/ipc"
	"github.com/ctremu/horizonfs/internal/memory"
	"github.com/ctremu/horizonfs/internal/result"
	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
)

const checkFileName = "/fscheck.bin"

// ErrHashMismatch is an error that occurs when the payload read back from
// the archive does not match what was written.
var ErrHashMismatch = errors.New("payload hash mismatch")

type App struct {
	manager *archive.Manager
	ram     *memory.FlatRAM
	size    uint32
}

func NewApp(manager *archive.Manager, ram *memory.FlatRAM, size uint32) *App {
	return &App{
		manager: manager,
		ram:     ram,
		size:    size,
	}
}

// Run opens a file on the SDMC archive and pushes a pseudorandom payload
// through the Write, Read, GetSize and Close commands, comparing checksums
// of what went in and what came out.
func (app *App) Run() error {
	archiveHandle, rc := app.manager.OpenArchive(fs.ArchiveSDMC)
	if rc.IsError() {
		return fmt.Errorf("(fscheck) failed to open SDMC archive: %w", rc)
	}

	fileHandle, rc := app.manager.OpenFileFromArchive(archiveHandle,
		fs.CharPath(checkFileName), fs.ModeRead|fs.ModeWrite|fs.ModeCreate)
	if rc.IsError() {
		return fmt.Errorf("(fscheck) failed to open %s: %w", checkFileName, rc)
	}

	writeAddr := app.ram.Base()
	readAddr := app.ram.Base() + app.size

	payload, err := app.ram.Slice(writeAddr, app.size)
	if err != nil {
		return fmt.Errorf("(fscheck) failed to stage payload: %w", err)
	}
	if _, err := rand.Read(payload); err != nil {
		return fmt.Errorf("(fscheck) failed to generate payload: %w", err)
	}

	cb := ipc.NewBuffer()

	ipc.EncodeWriteRequest(cb, ipc.FileWrite, ipc.WriteRequest{
		Length:  app.size,
		Flush:   true,
		Address: writeAddr,
	})
	if rc := app.manager.SyncRequest(fileHandle, cb); rc.IsError() {
		return fmt.Errorf("(fscheck) write command failed: %w", rc)
	}
	if n := ipc.BytesMoved(cb); n != app.size {
		return fmt.Errorf("(fscheck) short write: %d of %d bytes", n, app.size)
	}

	ipc.EncodeReadRequest(cb, ipc.FileRead, ipc.ReadRequest{
		Length:  app.size,
		Address: readAddr,
	})
	if rc := app.manager.SyncRequest(fileHandle, cb); rc.IsError() {
		return fmt.Errorf("(fscheck) read command failed: %w", rc)
	}
	if n := ipc.BytesMoved(cb); n != app.size {
		return fmt.Errorf("(fscheck) short read: %d of %d bytes", n, app.size)
	}

	readBack, err := app.ram.Slice(readAddr, app.size)
	if err != nil {
		return fmt.Errorf("(fscheck) failed to fetch read payload: %w", err)
	}

	srcSum := blake3.Sum256(payload)
	dstSum := blake3.Sum256(readBack)
	if srcSum != dstSum {
		return fmt.Errorf("%w: %s (src) != %s (dst)", ErrHashMismatch,
			hex.EncodeToString(srcSum[:]), hex.EncodeToString(dstSum[:]))
	}

	ipc.SetCommand(cb, uint32(ipc.FileGetSize))
	if rc := app.manager.SyncRequest(fileHandle, cb); rc.IsError() {
		return fmt.Errorf("(fscheck) get-size command failed: %w", rc)
	}

	slog.Info("Round trip verified.",
		"file", checkFileName,
		"size", humanize.Bytes(ipc.Size64(cb)),
		"hash", hex.EncodeToString(srcSum[:]))

	ipc.SetCommand(cb, uint32(ipc.FileClose))
	if rc := app.manager.SyncRequest(fileHandle, cb); rc.IsError() {
		return fmt.Errorf("(fscheck) close command failed: %w", rc)
	}

	if rc := app.manager.SyncRequest(fileHandle, cb); rc.IsSuccess() {
		return fmt.Errorf("(fscheck) closed handle still dispatches: %w", result.InvalidHandle(result.ModuleFS))
	}

	return nil
}
