package runtime

import "github.com/pkg/errors"

// Compute-unit cost schedule. Every operation a processor performs
// charges a fixed amount, so consumed CU is a pure function of the
// instruction and the pre-state.
const (
	// MaxComputeUnitLimit is the per-transaction CU ceiling.
	MaxComputeUnitLimit = 1_400_000

	CUSyscallBaseCost = 100
	CUMemOpBaseCost   = 10
	CUCpiBaseCost     = 1_000

	// CUTransferCost is charged by the system program per lamport
	// transfer.
	CUTransferCost = 150

	// CUCreateAccountCost is charged by the system program per
	// account allocation, plus CUAllocByteCost per byte of space.
	CUCreateAccountCost = 1_500
	CUAllocByteCost     = 1

	// Token program costs.
	CUTokenTransferCost = 4_644
	CUTokenMintToCost   = 4_538
	CUTokenInitCost     = 3_000
)

// LamportsPerByte is the rent an account must hold per byte of data.
const LamportsPerByte = 7

// RentFor returns the minimum lamport balance for an account of the
// given size.
func RentFor(size int) uint64 {
	return uint64(size) * LamportsPerByte
}

// ComputeMeter tracks compute units consumed by one transaction.
type ComputeMeter struct {
	limit uint64
	used  uint64
}

// NewComputeMeter returns a meter with the given CU ceiling.
func NewComputeMeter(limit uint64) *ComputeMeter {
	return &ComputeMeter{limit: limit}
}

// Charge consumes n compute units. It returns ErrComputeExceeded once
// cumulative consumption passes the meter's ceiling.
func (m *ComputeMeter) Charge(n uint64) error {
	m.used += n
	if m.used > m.limit {
		return errors.Wrapf(ErrComputeExceeded, "charge %d, used %d of %d", n, m.used, m.limit)
	}
	return nil
}

// Used returns the compute units consumed so far.
func (m *ComputeMeter) Used() uint64 {
	return m.used
}

// Remaining returns the compute units left before the ceiling.
func (m *ComputeMeter) Remaining() uint64 {
	if m.used > m.limit {
		return 0
	}
	return m.limit - m.used
}
