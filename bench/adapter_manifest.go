package bench

import (
	"github.com/dropset/cubench/programs/manifest"
	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/runtime"
)

// manifestAdapter drives the manifest-style program. Markets start at
// minimal capacity and grow on demand, so it exposes both fixture
// variants, and its instructions carry whatever hints the fixture's
// resolver can supply.
type manifestAdapter struct{}

// NewManifestAdapter returns the adapter for the manifest-style
// program.
func NewManifestAdapter() Adapter { return manifestAdapter{} }

func (manifestAdapter) Name() string              { return "manifest" }
func (manifestAdapter) ProgramID() runtime.Pubkey { return manifest.ID }
func (manifestAdapter) Magic() uint32             { return manifest.Magic }

func (manifestAdapter) Install(b *runtime.Bank, image []byte) {
	manifest.Install(b, image)
}

func (manifestAdapter) Variants() []Variant {
	return []Variant{VariantFresh, VariantPreExpanded}
}

func (manifestAdapter) MarketSpace() int {
	return orderbook.Size(manifest.InitialBlocks)
}

func (manifestAdapter) CreateMarket(f *Fixture) runtime.Instruction {
	return manifest.CreateMarketInstruction(f.Trader, f.Market, f.BaseMint, f.QuoteMint)
}

func (manifestAdapter) ClaimSeat(f *Fixture) runtime.Instruction {
	return manifest.ClaimSeatInstruction(f.Market, f.Trader)
}

func (manifestAdapter) PreExpand(f *Fixture) (runtime.Instruction, bool) {
	return manifest.ExpandInstruction(f.Trader, f.Market, manifest.MaxExpandBlocks), true
}

func (manifestAdapter) Deposit(f *Fixture, baseAtoms uint64) runtime.Instruction {
	return manifest.DepositInstruction(f.Market, f.Trader, f.TraderBase, f.VaultBase, baseAtoms, f.Hints.SeatIndex(f))
}

func (manifestAdapter) Withdraw(f *Fixture, baseAtoms uint64) runtime.Instruction {
	return manifest.WithdrawInstruction(f.Market, f.Trader, f.TraderBase, f.VaultBase, baseAtoms, f.Hints.SeatIndex(f))
}

func (manifestAdapter) PlaceOrders(f *Fixture, orders []Order) runtime.Instruction {
	places := make([]manifest.PlaceOrderParams, len(orders))
	for i, o := range orders {
		places[i] = manifest.PlaceOrderParams{
			BaseAtoms:     o.BaseAtoms,
			PriceMantissa: o.PriceMantissa,
			PriceExponent: o.PriceExponent,
		}
	}
	return manifest.BatchUpdateInstruction(f.Market, f.Trader, f.Hints.SeatIndex(f), nil, places)
}

func (manifestAdapter) CancelOrders(f *Fixture, seqs []uint64) runtime.Instruction {
	cancels := make([]manifest.CancelOrderParams, len(seqs))
	for i, seq := range seqs {
		cancels[i] = manifest.NewCancelWithHint(seq, f.Hints.OrderIndex(f, seq))
	}
	return manifest.BatchUpdateInstruction(f.Market, f.Trader, f.Hints.SeatIndex(f), cancels, nil)
}

func (manifestAdapter) Swap(f *Fixture, baseAtoms uint64) runtime.Instruction {
	return manifest.SwapInstruction(f.Market, f.Trader, f.TraderBase, f.TraderQuote, f.VaultBase, f.VaultQuote, baseAtoms)
}
