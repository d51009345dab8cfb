package bench

import (
	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/programs/phoenix"
	"github.com/dropset/cubench/runtime"
)

// phoenixAdapter drives the phoenix-style program. Its markets are
// allocated at full capacity when created, so only the fresh variant
// exists, and no instruction takes a hint.
type phoenixAdapter struct{}

// NewPhoenixAdapter returns the adapter for the phoenix-style program.
func NewPhoenixAdapter() Adapter { return phoenixAdapter{} }

func (phoenixAdapter) Name() string              { return "phoenix" }
func (phoenixAdapter) ProgramID() runtime.Pubkey { return phoenix.ID }
func (phoenixAdapter) Magic() uint32             { return phoenix.Magic }

func (phoenixAdapter) Install(b *runtime.Bank, image []byte) {
	phoenix.Install(b, image)
}

func (phoenixAdapter) Variants() []Variant {
	return []Variant{VariantFresh}
}

func (phoenixAdapter) MarketSpace() int {
	return orderbook.Size(phoenix.BookSlots)
}

func (phoenixAdapter) CreateMarket(f *Fixture) runtime.Instruction {
	return phoenix.CreateMarketInstruction(f.Trader, f.Market, f.BaseMint, f.QuoteMint)
}

func (phoenixAdapter) ClaimSeat(f *Fixture) runtime.Instruction {
	return phoenix.RequestSeatInstruction(f.Market, f.Trader)
}

func (phoenixAdapter) PreExpand(f *Fixture) (runtime.Instruction, bool) {
	return runtime.Instruction{}, false
}

func (phoenixAdapter) Deposit(f *Fixture, baseAtoms uint64) runtime.Instruction {
	return phoenix.DepositInstruction(f.Market, f.Trader, f.TraderBase, f.TraderQuote, f.VaultBase, f.VaultQuote, baseAtoms, 0)
}

func (phoenixAdapter) Withdraw(f *Fixture, baseAtoms uint64) runtime.Instruction {
	return phoenix.WithdrawInstruction(f.Market, f.Trader, f.TraderBase, f.TraderQuote, f.VaultBase, f.VaultQuote, baseAtoms, 0)
}

func (phoenixAdapter) PlaceOrders(f *Fixture, orders []Order) runtime.Instruction {
	packets := make([]phoenix.OrderPacket, len(orders))
	for i, o := range orders {
		packets[i] = phoenix.OrderPacket{
			BaseAtoms:    o.BaseAtoms,
			PriceInTicks: ticksFor(o),
			IsBid:        false,
		}
	}
	if len(packets) == 1 {
		return phoenix.PlaceLimitInstruction(f.Market, f.Trader, packets[0])
	}
	return phoenix.PlaceMultipleInstruction(f.Market, f.Trader, packets)
}

// ticksFor flattens a mantissa/exponent price into whole ticks. The
// engine only emits zero-exponent prices, so this is exact.
func ticksFor(o Order) uint64 {
	ticks := uint64(o.PriceMantissa)
	for e := o.PriceExponent; e > 0; e-- {
		ticks *= 10
	}
	for e := o.PriceExponent; e < 0; e++ {
		ticks /= 10
	}
	return ticks
}

func (phoenixAdapter) CancelOrders(f *Fixture, seqs []uint64) runtime.Instruction {
	return phoenix.CancelAllInstruction(f.Market, f.Trader)
}

func (phoenixAdapter) Swap(f *Fixture, baseAtoms uint64) runtime.Instruction {
	return phoenix.SwapInstruction(f.Market, f.Trader, f.TraderBase, f.TraderQuote, f.VaultBase, f.VaultQuote, baseAtoms)
}
