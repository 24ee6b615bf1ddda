// Package kernel implements the handle-addressed kernel object model: a
// pool that owns every live object and resolves opaque handles to typed
// pointers, mirroring the guest operating system's own handle table so that
// objects are never referenced by raw address across the IPC boundary.
package kernel

// Handle is an opaque identifier referencing a live kernel object. The low
// 16 bits select a pool slot, the high 16 bits carry a nonzero generation
// so that stale handles fail to resolve instead of aliasing a new object.
type Handle uint32

// HandleInvalid never resolves to an object.
const HandleInvalid Handle = 0

// HandleType tags the kind of a kernel object. The enumeration is closed;
// dispatch matches on the tag rather than on dynamic type hierarchies.
type HandleType uint32

const (
	HandleTypeUnknown HandleType = iota
	HandleTypeArchive
	HandleTypeFile
	HandleTypeDirectory
)

func (t HandleType) String() string {
	switch t {
	case HandleTypeArchive:
		return "Archive"
	case HandleTypeFile:
		return "File"
	case HandleTypeDirectory:
		return "Directory"
	default:
		return "Unknown"
	}
}

// Object is a kernel object owned by exactly one pool slot. The pool
// creates it on construction and destroys it explicitly; no other component
// may free it.
type Object interface {
	// TypeName returns the human-readable name of the object's kind.
	TypeName() string

	// Name returns the debug name of this instance.
	Name() string

	// HandleType returns the closed-enumeration type tag.
	HandleType() HandleType
}
