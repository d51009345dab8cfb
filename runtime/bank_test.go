package runtime

import (
	"testing"

	"github.com/pkg/errors"
)

func fundedBank(t *testing.T, payer Pubkey) *Bank {
	t.Helper()
	b := NewBank()
	b.SetAccount(payer, &Account{Lamports: 1_000_000})
	return b
}

func TestSystemCreateAccount(t *testing.T) {
	payer := DerivePubkey("test", "payer")
	owner := DerivePubkey("test", "owner")
	fresh := DerivePubkey("test", "fresh")
	b := fundedBank(t, payer)

	tx := NewTransaction(payer, SystemCreateAccount(payer, fresh, owner, 64, 448))
	meta, err := b.Commit(tx)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(CUCreateAccountCost + 64*CUAllocByteCost); meta.CUConsumed != want {
		t.Errorf("cu: got %d, want %d", meta.CUConsumed, want)
	}

	a, ok := b.Account(fresh)
	if !ok {
		t.Fatal("account not created")
	}
	if a.Owner != owner || len(a.Data) != 64 || a.Lamports != 448 {
		t.Errorf("account = %+v", a)
	}
	p, _ := b.Account(payer)
	if p.Lamports != 1_000_000-448 {
		t.Errorf("payer lamports: got %d", p.Lamports)
	}

	// Same address again collides.
	_, err = b.Commit(NewTransaction(payer, SystemCreateAccount(payer, fresh, owner, 64, 448)))
	if errors.Cause(err) != ErrAccountInUse {
		t.Errorf("got %v, want ErrAccountInUse", err)
	}
}

func TestSystemTransfer(t *testing.T) {
	from := DerivePubkey("test", "from")
	to := DerivePubkey("test", "to")
	b := fundedBank(t, from)
	b.SetAccount(to, &Account{})

	if _, err := b.Commit(NewTransaction(from, SystemTransfer(from, to, 250))); err != nil {
		t.Fatal(err)
	}
	ta, _ := b.Account(to)
	if ta.Lamports != 250 {
		t.Errorf("to lamports: got %d, want 250", ta.Lamports)
	}

	_, err := b.Commit(NewTransaction(from, SystemTransfer(from, to, 10_000_000)))
	if errors.Cause(err) != ErrInsufficientFunds {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestSimulateLeavesStateUntouched(t *testing.T) {
	from := DerivePubkey("test", "from")
	to := DerivePubkey("test", "to")
	b := fundedBank(t, from)
	b.SetAccount(to, &Account{})

	tx := NewTransaction(from, SystemTransfer(from, to, 250))
	m1, err := b.Simulate(tx)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := b.Simulate(tx)
	if err != nil {
		t.Fatal(err)
	}
	if m1.CUConsumed != m2.CUConsumed {
		t.Errorf("repeat simulation: %d then %d CU", m1.CUConsumed, m2.CUConsumed)
	}
	if ta, _ := b.Account(to); ta.Lamports != 0 {
		t.Errorf("simulate mutated durable state: to has %d lamports", ta.Lamports)
	}
	if b.Slot() != 0 {
		t.Errorf("simulate advanced slot to %d", b.Slot())
	}

	if _, err := b.Commit(tx); err != nil {
		t.Fatal(err)
	}
	if ta, _ := b.Account(to); ta.Lamports != 250 {
		t.Errorf("commit: to has %d lamports, want 250", ta.Lamports)
	}
	if b.Slot() != 1 {
		t.Errorf("slot: got %d, want 1", b.Slot())
	}
}

func TestErrorCauses(t *testing.T) {
	payer := DerivePubkey("test", "payer")
	other := DerivePubkey("test", "other")
	b := fundedBank(t, payer)
	b.SetAccount(other, &Account{})

	unsigned := SystemTransfer(payer, other, 1)
	unsigned.Accounts[0] = MetaWritable(payer)

	cases := []struct {
		name string
		ix   Instruction
		want error
	}{
		{"unknown program", Instruction{ProgramID: DerivePubkey("test", "nobody")}, ErrUnknownProgram},
		{"missing signer", unsigned, ErrMissingSigner},
		{"bad tag", Instruction{ProgramID: SystemProgramID, Data: []byte{99}}, ErrInvalidData},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := b.Commit(NewTransaction(payer, c.ix))
			if errors.Cause(err) != c.want {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestComputeLimitEnforced(t *testing.T) {
	payer := DerivePubkey("test", "payer")
	fresh := DerivePubkey("test", "fresh2")
	b := fundedBank(t, payer)
	b.SetComputeLimit(10)

	_, err := b.Commit(NewTransaction(payer, SystemCreateAccount(payer, fresh, payer, 64, 448)))
	if errors.Cause(err) != ErrComputeExceeded {
		t.Errorf("got %v, want ErrComputeExceeded", err)
	}
	// Nothing from the failed transaction sticks.
	if _, ok := b.Account(fresh); ok {
		t.Error("account created by failed transaction")
	}
}

func TestFailedCommitIsAtomic(t *testing.T) {
	from := DerivePubkey("test", "from")
	to := DerivePubkey("test", "to")
	b := fundedBank(t, from)
	b.SetAccount(to, &Account{})

	// First instruction succeeds, second fails: the transfer must not
	// stick.
	tx := NewTransaction(from,
		SystemTransfer(from, to, 250),
		Instruction{ProgramID: SystemProgramID, Data: []byte{99}},
	)
	_, err := b.Commit(tx)
	if errors.Cause(err) != ErrInvalidData {
		t.Fatalf("got %v, want ErrInvalidData", err)
	}
	if ta, _ := b.Account(to); ta.Lamports != 0 {
		t.Errorf("failed commit left partial state: to has %d lamports, want 0", ta.Lamports)
	}
	if fa, _ := b.Account(from); fa.Lamports != 1_000_000 {
		t.Errorf("failed commit left partial state: from has %d lamports, want 1000000", fa.Lamports)
	}
	if b.Slot() != 0 {
		t.Errorf("failed commit advanced slot to %d", b.Slot())
	}
}

func TestInvokeDepthLimit(t *testing.T) {
	payer := DerivePubkey("test", "payer")
	pid := DerivePubkey("test", "recurse")
	b := fundedBank(t, payer)
	b.Register(pid, func(ic *InvokeContext) error {
		return ic.Invoke(Instruction{ProgramID: pid})
	})

	_, err := b.Commit(NewTransaction(payer, Instruction{ProgramID: pid}))
	if errors.Cause(err) != ErrCallDepth {
		t.Errorf("got %v, want ErrCallDepth", err)
	}
}

func TestResizeRequiresRent(t *testing.T) {
	payer := DerivePubkey("test", "payer")
	pid := DerivePubkey("test", "resizer")
	target := DerivePubkey("test", "target")
	b := fundedBank(t, payer)
	b.Register(pid, func(ic *InvokeContext) error {
		return ic.Resize(0, 128)
	})
	grow := Instruction{
		ProgramID: pid,
		Accounts:  []AccountMeta{MetaWritable(target)},
	}

	b.SetAccount(target, &Account{Lamports: RentFor(64), Data: make([]byte, 64)})
	_, err := b.Commit(NewTransaction(payer, grow))
	if errors.Cause(err) != ErrInsufficientFunds {
		t.Errorf("underfunded grow: got %v, want ErrInsufficientFunds", err)
	}

	b.SetAccount(target, &Account{Lamports: RentFor(128), Data: make([]byte, 64)})
	meta, err := b.Commit(NewTransaction(payer, grow))
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(64 * CUAllocByteCost); meta.CUConsumed != want {
		t.Errorf("grow cu: got %d, want %d", meta.CUConsumed, want)
	}
	a, _ := b.Account(target)
	if len(a.Data) != 128 {
		t.Errorf("data length: got %d, want 128", len(a.Data))
	}
}
