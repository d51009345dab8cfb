// Package bench measures the compute cost of order-book program
// instructions. Each program under test is driven through an Adapter
// that builds program-specific instructions from a common vocabulary
// of operations, so the engine can run the same scenarios against
// every target and report comparable numbers.
package bench

import (
	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/runtime"
)

// NoHint tells an adapter not to pass an index hint.
const NoHint = orderbook.NilIndex

// Variant selects how the market fixture is provisioned before
// measurement.
type Variant string

const (
	// VariantFresh measures against a market at its minimal
	// capacity, so operations pay for any growth they trigger.
	VariantFresh Variant = "fresh"
	// VariantPreExpanded measures against a market whose capacity
	// was raised by a committed administrative expansion before any
	// measured instruction runs.
	VariantPreExpanded Variant = "pre-expanded"
)

// Order is a program-agnostic limit order. The engine only ever posts
// asks with a zero price exponent so every adapter can express them.
type Order struct {
	BaseAtoms     uint64
	PriceMantissa uint32
	PriceExponent int8
}

// Adapter builds instructions for one program under test.
type Adapter interface {
	// Name is the program's short name, also the image file stem.
	Name() string
	ProgramID() runtime.Pubkey
	// Magic identifies the program's market accounts.
	Magic() uint32
	// Install registers the program with a bank.
	Install(b *runtime.Bank, image []byte)
	// Variants lists the fixture variants the program supports.
	// Programs whose markets are fully allocated at creation have
	// nothing to pre-expand and return only VariantFresh.
	Variants() []Variant
	// MarketSpace is the byte size of a newly created market
	// account.
	MarketSpace() int

	CreateMarket(f *Fixture) runtime.Instruction
	ClaimSeat(f *Fixture) runtime.Instruction
	// PreExpand returns the committed administrative expansion for
	// VariantPreExpanded, or ok=false when the program has none.
	PreExpand(f *Fixture) (ix runtime.Instruction, ok bool)

	Deposit(f *Fixture, baseAtoms uint64) runtime.Instruction
	Withdraw(f *Fixture, baseAtoms uint64) runtime.Instruction
	PlaceOrders(f *Fixture, orders []Order) runtime.Instruction
	// CancelOrders removes the trader's resting orders named by seq.
	// Programs without per-order cancellation may cancel all of the
	// trader's orders instead; the engine only ever asks for the
	// full resting set.
	CancelOrders(f *Fixture, seqs []uint64) runtime.Instruction
	Swap(f *Fixture, baseAtoms uint64) runtime.Instruction
}
