package bench

import (
	"github.com/pkg/errors"

	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/runtime"
	"github.com/dropset/cubench/runtime/token"
)

// Atom scales for the fixture's synthetic token pair.
const (
	BaseUnit  = 1_000_000_000
	QuoteUnit = 1_000_000
	// OneBase is the base amount measured operations act on.
	OneBase = BaseUnit
)

const (
	traderLamports = 1_000_000_000_000
	mintedAtoms    = 1_000_000 * BaseUnit
	seedBaseAtoms  = 500 * BaseUnit
	baseDecimals   = 9
	quoteDecimals  = 6
)

// Fixture is one self-contained world: a bank with the program under
// test installed, a funded trader holding a claimed seat, and token
// vaults backing the market. Every key is derived from fixed seeds so
// repeated runs build byte-identical state.
type Fixture struct {
	Adapter Adapter
	Variant Variant
	Bank    *runtime.Bank
	Hints   *HintResolver

	Trader      runtime.Pubkey
	Market      runtime.Pubkey
	BaseMint    runtime.Pubkey
	QuoteMint   runtime.Pubkey
	TraderBase  runtime.Pubkey
	TraderQuote runtime.Pubkey
	VaultBase   runtime.Pubkey
	VaultQuote  runtime.Pubkey
}

// NewFixture loads the program image, installs it on a fresh bank, and
// commits the seed state: mints, token accounts, a market with a
// claimed seat, and a base-side deposit. For VariantPreExpanded the
// adapter's administrative expansion is committed last, so its cost
// never reaches a measurement.
func NewFixture(loader *runtime.ImageLoader, a Adapter, v Variant) (*Fixture, error) {
	image, err := loader.Load(a.Name())
	if err != nil {
		return nil, &FixtureError{Err: err}
	}

	b := runtime.NewBank()
	token.Install(b)
	a.Install(b, image)

	name := a.Name()
	f := &Fixture{
		Adapter:     a,
		Variant:     v,
		Bank:        b,
		Hints:       NewHintResolver(true),
		Trader:      runtime.DerivePubkey("fixture", name, string(v), "trader"),
		Market:      runtime.DerivePubkey("fixture", name, string(v), "market"),
		BaseMint:    runtime.DerivePubkey("fixture", name, string(v), "mint", "base"),
		QuoteMint:   runtime.DerivePubkey("fixture", name, string(v), "mint", "quote"),
		TraderBase:  runtime.DerivePubkey("fixture", name, string(v), "ata", "base"),
		TraderQuote: runtime.DerivePubkey("fixture", name, string(v), "ata", "quote"),
		VaultBase:   runtime.DerivePubkey("fixture", name, string(v), "vault", "base"),
		VaultQuote:  runtime.DerivePubkey("fixture", name, string(v), "vault", "quote"),
	}

	b.SetAccount(f.Trader, &runtime.Account{Lamports: traderLamports})

	if err := f.Commit(
		createTokenAccount(f.Trader, f.BaseMint, token.MintLen),
		token.InitMint(f.BaseMint, f.Trader, baseDecimals),
		createTokenAccount(f.Trader, f.QuoteMint, token.MintLen),
		token.InitMint(f.QuoteMint, f.Trader, quoteDecimals),
	); err != nil {
		return nil, err
	}
	if err := f.Commit(
		createTokenAccount(f.Trader, f.TraderBase, token.AccountLen),
		token.InitAccount(f.TraderBase, f.BaseMint, f.Trader),
		token.MintTo(f.BaseMint, f.TraderBase, f.Trader, mintedAtoms),
		createTokenAccount(f.Trader, f.TraderQuote, token.AccountLen),
		token.InitAccount(f.TraderQuote, f.QuoteMint, f.Trader),
		token.MintTo(f.QuoteMint, f.TraderQuote, f.Trader, mintedAtoms),
	); err != nil {
		return nil, err
	}
	if err := f.Commit(
		createTokenAccount(f.Trader, f.VaultBase, token.AccountLen),
		token.InitAccount(f.VaultBase, f.BaseMint, f.Market),
		createTokenAccount(f.Trader, f.VaultQuote, token.AccountLen),
		token.InitAccount(f.VaultQuote, f.QuoteMint, f.Market),
	); err != nil {
		return nil, err
	}

	space := a.MarketSpace()
	if err := f.Commit(
		runtime.SystemCreateAccount(f.Trader, f.Market, a.ProgramID(), space, runtime.RentFor(space)),
		a.CreateMarket(f),
		a.ClaimSeat(f),
	); err != nil {
		return nil, err
	}
	if err := f.Commit(a.Deposit(f, seedBaseAtoms)); err != nil {
		return nil, err
	}

	if v == VariantPreExpanded {
		ix, ok := a.PreExpand(f)
		if !ok {
			return nil, &SetupError{Err: errors.Errorf("%s has no pre-expansion", name)}
		}
		if err := f.Commit(ix); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func createTokenAccount(payer, key runtime.Pubkey, space int) runtime.Instruction {
	return runtime.SystemCreateAccount(payer, key, runtime.TokenProgramID, space, runtime.RentFor(space))
}

// Commit applies seed instructions to durable state. Failures are
// setup failures, not results.
func (f *Fixture) Commit(ixs ...runtime.Instruction) error {
	if _, err := f.Bank.Commit(runtime.NewTransaction(f.Trader, ixs...)); err != nil {
		return &SetupError{Err: err}
	}
	return nil
}

// Book returns a read-only view of the committed market state.
func (f *Fixture) Book() (*orderbook.Book, error) {
	acct, ok := f.Bank.Account(f.Market)
	if !ok {
		return nil, errors.Wrapf(runtime.ErrAccountNotFound, "market %s", f.Market.Short())
	}
	return orderbook.Wrap(acct.Data, f.Adapter.Magic())
}

// RestingOrders lists the committed resting orders in block order.
func (f *Fixture) RestingOrders() ([]orderbook.IndexedOrder, error) {
	book, err := f.Book()
	if err != nil {
		return nil, err
	}
	return book.Orders(), nil
}

// SeatBalances returns the trader's committed seat balances.
func (f *Fixture) SeatBalances() (baseAtoms, quoteAtoms uint64, err error) {
	book, err := f.Book()
	if err != nil {
		return 0, 0, err
	}
	idx, _, ok := book.FindSeat(f.Trader)
	if !ok {
		return 0, 0, errors.Wrapf(runtime.ErrAccountNotFound, "seat for %s", f.Trader.Short())
	}
	seat, err := book.Seat(idx)
	if err != nil {
		return 0, 0, err
	}
	return seat.BaseAtoms, seat.QuoteAtoms, nil
}
