package token_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/runtime"
	"github.com/dropset/cubench/runtime/token"
)

type world struct {
	bank  *runtime.Bank
	owner runtime.Pubkey
	mint  runtime.Pubkey
	src   runtime.Pubkey
	dst   runtime.Pubkey
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		bank:  runtime.NewBank(),
		owner: runtime.DerivePubkey("token-test", "owner"),
		mint:  runtime.DerivePubkey("token-test", "mint"),
		src:   runtime.DerivePubkey("token-test", "src"),
		dst:   runtime.DerivePubkey("token-test", "dst"),
	}
	token.Install(w.bank)
	w.bank.SetAccount(w.owner, &runtime.Account{Lamports: 1_000_000})

	newAcct := func(key runtime.Pubkey, space int) runtime.Instruction {
		return runtime.SystemCreateAccount(w.owner, key, runtime.TokenProgramID, space, runtime.RentFor(space))
	}
	tx := runtime.NewTransaction(w.owner,
		newAcct(w.mint, token.MintLen),
		token.InitMint(w.mint, w.owner, 9),
		newAcct(w.src, token.AccountLen),
		token.InitAccount(w.src, w.mint, w.owner),
		newAcct(w.dst, token.AccountLen),
		token.InitAccount(w.dst, w.mint, w.owner),
		token.MintTo(w.mint, w.src, w.owner, 1_000),
	)
	if _, err := w.bank.Commit(tx); err != nil {
		t.Fatal(err)
	}
	return w
}

func (w *world) amount(t *testing.T, key runtime.Pubkey) uint64 {
	t.Helper()
	acct, ok := w.bank.Account(key)
	if !ok {
		t.Fatalf("no account %s", key.Short())
	}
	ta, err := token.DecodeAccount(acct.Data)
	if err != nil {
		t.Fatal(err)
	}
	return ta.Amount
}

func TestMintAndTransfer(t *testing.T) {
	w := newWorld(t)
	if got := w.amount(t, w.src); got != 1_000 {
		t.Fatalf("minted: got %d, want 1000", got)
	}

	meta, err := w.bank.Commit(runtime.NewTransaction(w.owner, token.Transfer(w.src, w.dst, w.owner, 400)))
	if err != nil {
		t.Fatal(err)
	}
	if meta.CUConsumed != runtime.CUTokenTransferCost {
		t.Errorf("transfer cu: got %d, want %d", meta.CUConsumed, runtime.CUTokenTransferCost)
	}
	if got := w.amount(t, w.src); got != 600 {
		t.Errorf("src: got %d, want 600", got)
	}
	if got := w.amount(t, w.dst); got != 400 {
		t.Errorf("dst: got %d, want 400", got)
	}
}

func TestTransferChecks(t *testing.T) {
	w := newWorld(t)
	stranger := runtime.DerivePubkey("token-test", "stranger")

	cases := []struct {
		name string
		ix   runtime.Instruction
		want error
	}{
		{"overdraw", token.Transfer(w.src, w.dst, w.owner, 5_000), runtime.ErrInsufficientFunds},
		{"wrong owner", token.Transfer(w.src, w.dst, stranger, 1), runtime.ErrMissingSigner},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := w.bank.Commit(runtime.NewTransaction(w.owner, c.ix))
			if errors.Cause(err) != c.want {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestMintToAuthority(t *testing.T) {
	w := newWorld(t)
	stranger := runtime.DerivePubkey("token-test", "stranger")
	_, err := w.bank.Commit(runtime.NewTransaction(w.owner, token.MintTo(w.mint, w.src, stranger, 1)))
	if errors.Cause(err) != runtime.ErrMissingSigner {
		t.Errorf("got %v, want ErrMissingSigner", err)
	}
}

func TestInitMintBadSize(t *testing.T) {
	b := runtime.NewBank()
	token.Install(b)
	payer := runtime.DerivePubkey("token-test", "payer")
	small := runtime.DerivePubkey("token-test", "small")
	b.SetAccount(payer, &runtime.Account{Lamports: 1_000_000})

	tx := runtime.NewTransaction(payer,
		runtime.SystemCreateAccount(payer, small, runtime.TokenProgramID, 8, runtime.RentFor(8)),
		token.InitMint(small, payer, 9),
	)
	_, err := b.Commit(tx)
	if errors.Cause(err) != runtime.ErrInvalidData {
		t.Errorf("got %v, want ErrInvalidData", err)
	}
}
