package runtime

import "github.com/pkg/errors"

// Sentinel errors returned by the runtime. Callers compare with
// errors.Cause.
var (
	ErrComputeExceeded   = errors.New("compute unit limit exceeded")
	ErrUnknownProgram    = errors.New("no processor registered for program")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInUse      = errors.New("account already exists")
	ErrMissingSigner     = errors.New("required signer missing")
	ErrNotWritable       = errors.New("account not marked writable")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidData       = errors.New("invalid instruction or account data")
	ErrCallDepth         = errors.New("cross-program invocation depth exceeded")
	ErrMissingImage      = errors.New("program image missing or empty")
)
