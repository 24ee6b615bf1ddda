// Package result implements the structured result codes that the guest
// operating system uses to report operation outcomes across the IPC boundary.
// A [Code] packs a description, module, summary and severity level into a
// single 32-bit value, bit-exact with the guest ABI.
package result

import "fmt"

// Description is the fine-grained failure reason of a result code.
type Description uint32

// Generic descriptions used throughout the filesystem layer.
const (
	DescSuccess        Description = 0
	DescNoData         Description = 1007
	DescNotImplemented Description = 1012
	DescInvalidAddress Description = 1013
	DescInvalidHandle  Description = 1015
	DescNotFound       Description = 1018
	DescAlreadyExists  Description = 1020
)

// Module identifies the guest subsystem that produced a result code.
type Module uint32

const (
	ModuleCommon Module = 0
	ModuleKernel Module = 1
	ModuleOS     Module = 6
	ModuleFS     Module = 17
)

// Summary is the coarse classification of a result code.
type Summary uint32

const (
	SummarySuccess         Summary = 0
	SummaryNothingHappened Summary = 1
	SummaryWouldBlock      Summary = 2
	SummaryOutOfResource   Summary = 3
	SummaryNotFound        Summary = 4
	SummaryInvalidState    Summary = 5
	SummaryNotSupported    Summary = 6
	SummaryInvalidArgument Summary = 7
	SummaryWrongArgument   Summary = 8
	SummaryCanceled        Summary = 9
	SummaryStatusChanged   Summary = 10
	SummaryInternal        Summary = 11
	SummaryInvalidResult   Summary = 63
)

// Level is the severity of a result code. Every level except Success and
// Info sets the sign bit of the packed code.
type Level uint32

const (
	LevelSuccess      Level = 0
	LevelInfo         Level = 1
	LevelStatus       Level = 25
	LevelTemporary    Level = 26
	LevelPermanent    Level = 27
	LevelUsage        Level = 28
	LevelReinitialize Level = 29
	LevelReset        Level = 30
	LevelFatal        Level = 31
)

// Code is a packed guest result code: bits 0-9 hold the description,
// bits 10-17 the module, bits 21-26 the summary and bits 27-31 the level.
type Code uint32

// Success is the dedicated success singleton used by void operations.
const Success Code = 0

// New packs the four descriptor fields into a Code. All fields are
// required; there is no partially specified error.
func New(desc Description, module Module, summary Summary, level Level) Code {
	return Code(uint32(desc)&0x3FF |
		(uint32(module)&0xFF)<<10 |
		(uint32(summary)&0x3F)<<21 |
		(uint32(level)&0x1F)<<27)
}

func (c Code) Description() Description { return Description(uint32(c) & 0x3FF) }
func (c Code) Module() Module           { return Module(uint32(c) >> 10 & 0xFF) }
func (c Code) Summary() Summary         { return Summary(uint32(c) >> 21 & 0x3F) }
func (c Code) Level() Level             { return Level(uint32(c) >> 27 & 0x1F) }

// IsError reports whether the code describes a failure. Error levels set
// the sign bit of the packed value.
func (c Code) IsError() bool { return uint32(c)>>31 != 0 }

func (c Code) IsSuccess() bool { return !c.IsError() }

func (c Code) String() string {
	if c == Success {
		return "result success"
	}

	return fmt.Sprintf("result 0x%08X (desc=%d module=%d summary=%d level=%d)",
		uint32(c), c.Description(), c.Module(), c.Summary(), c.Level())
}

// Error allows a Code to be handed to error-typed sinks without losing the
// descriptor fields. Success codes should never be treated as errors.
func (c Code) Error() string { return c.String() }

// NotFound is the lookup-failure code for archives, files and directories.
func NotFound(module Module) Code {
	return New(DescNotFound, module, SummaryNotFound, LevelPermanent)
}

// InvalidHandle reports a handle that resolved to a wrong or absent object.
func InvalidHandle(module Module) Code {
	return New(DescInvalidHandle, module, SummaryWrongArgument, LevelPermanent)
}

// Unimplemented reports a recognized but unsupported operation.
func Unimplemented(module Module) Code {
	return New(DescNotImplemented, module, SummaryNotSupported, LevelPermanent)
}

// Canceled is the status code mapped from a failed boolean backend operation.
func Canceled(module Module) Code {
	return New(DescNoData, module, SummaryCanceled, LevelStatus)
}

// NothingHappened is the status code for a same-archive rename that the
// backend declined.
func NothingHappened(module Module) Code {
	return New(DescNoData, module, SummaryNothingHappened, LevelStatus)
}

// AlreadyExists reports a mount against an archive type that is already
// occupied in the registry.
func AlreadyExists(module Module) Code {
	return New(DescAlreadyExists, module, SummaryInvalidState, LevelStatus)
}

// InvalidAddress reports a guest address that the memory collaborator could
// not translate.
func InvalidAddress(module Module) Code {
	return New(DescInvalidAddress, module, SummaryInvalidArgument, LevelUsage)
}
