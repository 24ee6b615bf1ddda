// Package archive implements the filesystem service core: the Archive,
// File and Directory kernel objects, the IPC command dispatch against them,
// the registry of mounted archive types, and the programmatic service
// entry points used during archive lifecycle management.
package archive

import (
	"github.com/ctremu/horizonfs/internal/fs"
	"github.com/ctremu/horizonfs/internal/kernel"
)

// Archive is a kernel object representing a mounted storage root. It
// exclusively owns one backend instance; the archive type identifier comes
// from the backend.
type Archive struct {
	name    string
	backend fs.ArchiveBackend
}

func (a *Archive) TypeName() string { return "Archive" }

func (a *Archive) Name() string { return a.name }

func (a *Archive) HandleType() kernel.HandleType { return kernel.HandleTypeArchive }

// File is a kernel object wrapping one per-open backend file handle.
type File struct {
	path    fs.Path
	backend fs.FileBackend
}

func (f *File) TypeName() string { return "File" }

func (f *File) Name() string { return f.path.String() }

func (f *File) HandleType() kernel.HandleType { return kernel.HandleTypeFile }

// Directory is a kernel object wrapping one per-open backend directory
// handle.
type Directory struct {
	path    fs.Path
	backend fs.DirectoryBackend
}

func (d *Directory) TypeName() string { return "Directory" }

func (d *Directory) Name() string { return d.path.String() }

func (d *Directory) HandleType() kernel.HandleType { return kernel.HandleTypeDirectory }
