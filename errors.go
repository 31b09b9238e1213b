package blockpress

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// PipelineError is the error type returned by every stage of the pipeline. All
// of the predefined errors below can be refined with a message or wrapped
// around a lower-level error without losing the original for [errors.Is].
type PipelineError interface {
	error
	WithMessage(message string) PipelineError
	Wrap(err error) PipelineError
}

type basePipelineError string

const rootError = basePipelineError("")

var ErrArgumentOutOfRange = rootError.WithMessage("Numerical argument out of domain")
var ErrCompressorFailure = rootError.WithMessage("Byte compressor failed")
var ErrInvalidArgument = rootError.WithMessage("Invalid argument")
var ErrInvalidBitWidth = rootError.WithMessage("Invalid bit width")
var ErrNotInvertible = rootError.WithMessage("Transform cannot be reversed")
var ErrSymbolOutOfRange = rootError.WithMessage("Symbol out of palette range")
var ErrUnderflowOnDecode = rootError.WithMessage("Not enough input to decode")
var ErrUnknownStrategy = rootError.WithMessage("Unknown strategy")
var ErrVerificationFailed = rootError.WithMessage("Round trip does not match original")

func (e basePipelineError) Error() string {
	return string(e)
}

func (e basePipelineError) WithMessage(message string) PipelineError {
	return customPipelineError{
		message:       message,
		originalError: e,
	}
}

func (e basePipelineError) Wrap(err error) PipelineError {
	return customPipelineError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customPipelineError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customPipelineError) Error() string {
	return e.message
}

func (e customPipelineError) WithMessage(message string) PipelineError {
	return customPipelineError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customPipelineError) Wrap(err error) PipelineError {
	return customPipelineError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customPipelineError) Unwrap() error {
	return e.originalError
}

// -----------------------------------------------------------------------------

// BlockError attaches the identity of a block to a failure in one of the
// pipeline stages, so callers can log or skip that block.
type BlockError struct {
	// Index is the position of the block in the input stream.
	Index int
	// PaletteSize is the palette size the failing stage was called with.
	PaletteSize uint32
	Stage       Stage
	Err         error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf(
		"block %d (palette size %d): %s failed: %s",
		e.Index,
		e.PaletteSize,
		e.Stage,
		e.Err.Error(),
	)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}
