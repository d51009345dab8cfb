// Package runtime is a deterministic in-process execution environment
// for on-chain program instructions. It models accounts, a compute
// meter with a fixed cost schedule, and native processors registered
// per program address. Consumed compute units are a pure function of
// the instruction payload and the pre-state, which is what makes
// measurements taken against it reproducible.
package runtime

import (
	"fmt"

	"github.com/pkg/errors"
)

// ProcessFunc is a native program entrypoint.
type ProcessFunc func(*InvokeContext) error

// Bank holds durable account state and the set of registered
// programs. A Bank is not safe for concurrent use; benchmark cases
// own their Bank exclusively and run sequentially.
type Bank struct {
	slot       uint64
	cuLimit    uint64
	accounts   map[Pubkey]*Account
	processors map[Pubkey]ProcessFunc
}

// NewBank returns a Bank with the builtin system program registered
// and the default compute ceiling.
func NewBank() *Bank {
	b := &Bank{
		cuLimit:    MaxComputeUnitLimit,
		accounts:   make(map[Pubkey]*Account),
		processors: make(map[Pubkey]ProcessFunc),
	}
	b.Register(SystemProgramID, processSystem)
	return b
}

// SetComputeLimit overrides the per-transaction CU ceiling.
func (b *Bank) SetComputeLimit(limit uint64) {
	b.cuLimit = limit
}

// Register installs a native processor for the given program address.
func (b *Bank) Register(programID Pubkey, proc ProcessFunc) {
	b.processors[programID] = proc
}

// RegisterProgram installs a native processor together with an
// executable program account holding the loaded image bytes.
func (b *Bank) RegisterProgram(programID Pubkey, image []byte, proc ProcessFunc) {
	b.Register(programID, proc)
	b.accounts[programID] = &Account{
		Lamports:   RentFor(len(image)),
		Data:       image,
		Executable: true,
	}
}

// SetAccount stores a copy of the account at the given address.
func (b *Bank) SetAccount(key Pubkey, a *Account) {
	b.accounts[key] = a.Clone()
}

// Account returns a copy of the account at the given address.
func (b *Bank) Account(key Pubkey) (*Account, bool) {
	a, ok := b.accounts[key]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Slot returns the current slot. It advances by one on every Commit.
func (b *Bank) Slot() uint64 {
	return b.slot
}

// Simulate dry-runs the transaction against a copy of durable state
// and reports consumed compute units. Durable state is never touched,
// so simulating the same transaction twice yields the same result.
func (b *Bank) Simulate(tx Transaction) (*TxMeta, error) {
	return b.execute(copyAccounts(b.accounts), tx)
}

// Commit executes the transaction and, on success, swaps the result
// in as durable state and advances the slot. Execution runs against a
// working copy so a failing instruction cannot leave earlier
// instructions' effects behind. The caller passes the identical
// Transaction value it simulated; the two code paths share one
// executor.
func (b *Bank) Commit(tx Transaction) (*TxMeta, error) {
	working := copyAccounts(b.accounts)
	meta, err := b.execute(working, tx)
	if err != nil {
		return nil, err
	}
	b.accounts = working
	b.slot++
	return meta, nil
}

func copyAccounts(src map[Pubkey]*Account) map[Pubkey]*Account {
	dst := make(map[Pubkey]*Account, len(src))
	for k, a := range src {
		dst[k] = a.Clone()
	}
	return dst
}

// execute runs every instruction in order against the given account
// set, sharing one compute meter across the transaction.
func (b *Bank) execute(accounts map[Pubkey]*Account, tx Transaction) (*TxMeta, error) {
	meter := NewComputeMeter(b.cuLimit)
	var logs []string
	for i, ix := range tx.Instructions {
		ic := &InvokeContext{
			bank:     b,
			accounts: accounts,
			meter:    meter,
			ix:       ix,
			logs:     &logs,
		}
		if err := ic.run(); err != nil {
			return nil, errors.Wrapf(err, "instruction %d (program %s)", i, ix.ProgramID.Short())
		}
	}
	return &TxMeta{CUConsumed: meter.Used(), Logs: logs}, nil
}

const maxInvokeDepth = 4

// InvokeContext is the view a processor gets of one instruction
// invocation: its accounts, its data, and the transaction meter.
type InvokeContext struct {
	bank     *Bank
	accounts map[Pubkey]*Account
	meter    *ComputeMeter
	ix       Instruction
	depth    int
	logs     *[]string
}

func (ic *InvokeContext) run() error {
	proc, ok := ic.bank.processors[ic.ix.ProgramID]
	if !ok {
		return errors.Wrap(ErrUnknownProgram, ic.ix.ProgramID.Short())
	}
	return proc(ic)
}

// Charge consumes compute units from the transaction meter.
func (ic *InvokeContext) Charge(n uint64) error {
	return ic.meter.Charge(n)
}

// Data returns the instruction's serialized arguments.
func (ic *InvokeContext) Data() []byte {
	return ic.ix.Data
}

// NumAccounts returns the length of the instruction's account list.
func (ic *InvokeContext) NumAccounts() int {
	return len(ic.ix.Accounts)
}

// Meta returns the i'th account meta.
func (ic *InvokeContext) Meta(i int) (AccountMeta, error) {
	if i < 0 || i >= len(ic.ix.Accounts) {
		return AccountMeta{}, errors.Wrapf(ErrInvalidData, "account index %d of %d", i, len(ic.ix.Accounts))
	}
	return ic.ix.Accounts[i], nil
}

// Key returns the i'th account address.
func (ic *InvokeContext) Key(i int) (Pubkey, error) {
	m, err := ic.Meta(i)
	if err != nil {
		return Pubkey{}, err
	}
	return m.Pubkey, nil
}

// Account returns the i'th account for reading. The account must
// exist.
func (ic *InvokeContext) Account(i int) (*Account, error) {
	m, err := ic.Meta(i)
	if err != nil {
		return nil, err
	}
	a, ok := ic.accounts[m.Pubkey]
	if !ok {
		return nil, errors.Wrap(ErrAccountNotFound, m.Pubkey.Short())
	}
	return a, nil
}

// WritableAccount returns the i'th account for mutation, enforcing
// its writable flag.
func (ic *InvokeContext) WritableAccount(i int) (*Account, error) {
	m, err := ic.Meta(i)
	if err != nil {
		return nil, err
	}
	if !m.Writable {
		return nil, errors.Wrap(ErrNotWritable, m.Pubkey.Short())
	}
	a, ok := ic.accounts[m.Pubkey]
	if !ok {
		return nil, errors.Wrap(ErrAccountNotFound, m.Pubkey.Short())
	}
	return a, nil
}

// RequireSigner enforces that the i'th account is marked signer.
func (ic *InvokeContext) RequireSigner(i int) error {
	m, err := ic.Meta(i)
	if err != nil {
		return err
	}
	if !m.Signer {
		return errors.Wrap(ErrMissingSigner, m.Pubkey.Short())
	}
	return nil
}

// Resize grows or shrinks the i'th account's data to newLen bytes,
// charging CUAllocByteCost per added byte. The account must already
// hold rent for the new size; use a system transfer first.
func (ic *InvokeContext) Resize(i, newLen int) error {
	a, err := ic.WritableAccount(i)
	if err != nil {
		return err
	}
	if grown := newLen - len(a.Data); grown > 0 {
		if err := ic.Charge(uint64(grown) * CUAllocByteCost); err != nil {
			return err
		}
		if a.Lamports < RentFor(newLen) {
			return errors.Wrapf(ErrInsufficientFunds, "rent for %d bytes", newLen)
		}
		a.Data = append(a.Data, make([]byte, grown)...)
		return nil
	}
	a.Data = a.Data[:newLen]
	return nil
}

// Invoke executes a cross-program instruction with the same account
// set and meter.
func (ic *InvokeContext) Invoke(inner Instruction) error {
	if ic.depth+1 >= maxInvokeDepth {
		return errors.Wrapf(ErrCallDepth, "depth %d", ic.depth+1)
	}
	if err := ic.Charge(CUCpiBaseCost); err != nil {
		return err
	}
	sub := &InvokeContext{
		bank:     ic.bank,
		accounts: ic.accounts,
		meter:    ic.meter,
		ix:       inner,
		depth:    ic.depth + 1,
		logs:     ic.logs,
	}
	return sub.run()
}

// Logf appends a program log line.
func (ic *InvokeContext) Logf(format string, args ...interface{}) {
	*ic.logs = append(*ic.logs, fmt.Sprintf(format, args...))
}

// createAccount allocates a fresh account in the working set.
func (ic *InvokeContext) createAccount(key Pubkey, owner Pubkey, space int, lamports uint64) error {
	if _, ok := ic.accounts[key]; ok {
		return errors.Wrap(ErrAccountInUse, key.Short())
	}
	ic.accounts[key] = &Account{
		Lamports: lamports,
		Data:     make([]byte, space),
		Owner:    owner,
	}
	return nil
}

// lookup returns the working-set account for an arbitrary address.
// Processors use indexes into their account list instead; this exists
// for the system program, whose targets are its own metas.
func (ic *InvokeContext) lookup(key Pubkey) (*Account, bool) {
	a, ok := ic.accounts[key]
	return a, ok
}
