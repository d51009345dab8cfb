// Package manifest is the manifest-style program target: an order
// book whose storage starts minimal and grows in blocks on demand,
// with the growth billed to the instruction that triggers it. Its
// instructions accept optional seat and order index hints so an
// optimized client can skip state scans.
package manifest

import (
	"github.com/pkg/errors"

	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/runtime"
	"github.com/dropset/cubench/runtime/token"
)

// ID is the program's address.
var ID = runtime.DerivePubkey("program", "manifest")

// Magic identifies manifest market accounts.
const Magic uint32 = 0x4d464e54 // "MNFT"

// Book sizing.
const (
	// InitialBlocks is the capacity a freshly registered market
	// starts with.
	InitialBlocks = 4
	// GrowBlocks is the capacity added per on-demand expansion.
	GrowBlocks = 8
	// MaxExpandBlocks is the largest single administrative
	// expansion, bounded by the runtime's permitted resize.
	MaxExpandBlocks = 160
)

// Compute-unit charges. Scan charges apply per occupied block
// visited, mirroring a linked-list traversal; nothing is charged per
// unit of unused capacity, so pre-expanding a market never makes an
// operation dearer. Hint verification costs less than a single scan
// visit, so a correctly hinted instruction never loses to a scan.
const (
	cuBase       = 1_500
	cuSeatHint   = 25
	cuSeatVisit  = 40
	cuFreeVisit  = 12
	cuPlace      = 1_850
	cuCancel     = 550
	cuCancelHint = 40
	cuOrderVisit = 45
	cuDeposit    = 1_200
	cuWithdraw   = 1_350
	cuSwapBase   = 2_400
	cuMatch      = 1_100
	cuExpand     = 2_800
)

// Install registers the program and its account image with the bank.
func Install(b *runtime.Bank, image []byte) {
	b.RegisterProgram(ID, image, process)
}

func process(ic *runtime.InvokeContext) error {
	data := ic.Data()
	if len(data) == 0 {
		return errors.Wrap(runtime.ErrInvalidData, "empty manifest instruction")
	}
	switch data[0] {
	case tagCreateMarket:
		return doCreateMarket(ic, data[1:])
	case tagClaimSeat:
		return doClaimSeat(ic, data[1:])
	case tagDeposit:
		return doDeposit(ic, data[1:])
	case tagWithdraw:
		return doWithdraw(ic, data[1:])
	case tagBatchUpdate:
		return doBatchUpdate(ic, data[1:])
	case tagSwap:
		return doSwap(ic, data[1:])
	case tagExpand:
		return doExpand(ic, data[1:])
	default:
		return errors.Wrapf(runtime.ErrInvalidData, "manifest tag %d", data[0])
	}
}

func doCreateMarket(ic *runtime.InvokeContext, args []byte) error {
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	if err := ic.Charge(cuBase); err != nil {
		return err
	}
	market, err := ic.WritableAccount(1)
	if err != nil {
		return err
	}
	baseMint, err := ic.Key(2)
	if err != nil {
		return err
	}
	quoteMint, err := ic.Key(3)
	if err != nil {
		return err
	}
	_, err = orderbook.Init(market.Data, Magic, baseMint, quoteMint)
	return err
}

func doClaimSeat(ic *runtime.InvokeContext, args []byte) error {
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	trader, err := ic.Key(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(cuBase); err != nil {
		return err
	}
	book, err := marketBook(ic, 1)
	if err != nil {
		return err
	}
	if _, visited, ok := book.FindSeat(trader); ok {
		if err := ic.Charge(uint64(visited) * cuSeatVisit); err != nil {
			return err
		}
		return errors.Wrap(runtime.ErrAccountInUse, "seat already claimed")
	}
	idx, visited, ok := book.FindFree()
	if err := ic.Charge(uint64(visited) * cuFreeVisit); err != nil {
		return err
	}
	if !ok {
		idx, err = growMarket(ic, 0, 1, GrowBlocks)
		if err != nil {
			return err
		}
		book, err = marketBook(ic, 1)
		if err != nil {
			return err
		}
	}
	book.SetSeat(idx, orderbook.Seat{Trader: trader})
	return nil
}

func doDeposit(ic *runtime.InvokeContext, args []byte) error {
	amount, hint, err := decodeAmountHint(args)
	if err != nil {
		return err
	}
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	trader, err := ic.Key(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(cuDeposit); err != nil {
		return err
	}
	book, err := marketBook(ic, 1)
	if err != nil {
		return err
	}
	seatIdx, err := resolveSeat(ic, book, trader, hint)
	if err != nil {
		return err
	}

	traderTokenKey, err := ic.Key(2)
	if err != nil {
		return err
	}
	vaultKey, err := ic.Key(3)
	if err != nil {
		return err
	}
	isBase, err := vaultSide(ic, book, 3)
	if err != nil {
		return err
	}
	if err := ic.Invoke(token.Transfer(traderTokenKey, vaultKey, trader, amount)); err != nil {
		return err
	}

	// Reload: the CPI shares the working set but not our view.
	book, err = marketBook(ic, 1)
	if err != nil {
		return err
	}
	seat, err := book.Seat(seatIdx)
	if err != nil {
		return err
	}
	if isBase {
		seat.BaseAtoms += amount
	} else {
		seat.QuoteAtoms += amount
	}
	book.SetSeat(seatIdx, seat)
	return nil
}

func doWithdraw(ic *runtime.InvokeContext, args []byte) error {
	amount, hint, err := decodeAmountHint(args)
	if err != nil {
		return err
	}
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	trader, err := ic.Key(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(cuWithdraw); err != nil {
		return err
	}
	marketKey, err := ic.Key(1)
	if err != nil {
		return err
	}
	book, err := marketBook(ic, 1)
	if err != nil {
		return err
	}
	seatIdx, err := resolveSeat(ic, book, trader, hint)
	if err != nil {
		return err
	}
	seat, err := book.Seat(seatIdx)
	if err != nil {
		return err
	}
	isBase, err := vaultSide(ic, book, 3)
	if err != nil {
		return err
	}
	if isBase {
		if seat.BaseAtoms < amount {
			return errors.Wrap(runtime.ErrInsufficientFunds, "withdraw base")
		}
		seat.BaseAtoms -= amount
	} else {
		if seat.QuoteAtoms < amount {
			return errors.Wrap(runtime.ErrInsufficientFunds, "withdraw quote")
		}
		seat.QuoteAtoms -= amount
	}
	book.SetSeat(seatIdx, seat)

	traderTokenKey, err := ic.Key(2)
	if err != nil {
		return err
	}
	vaultKey, err := ic.Key(3)
	if err != nil {
		return err
	}
	// The market "signs" for its vault.
	return ic.Invoke(token.Transfer(vaultKey, traderTokenKey, marketKey, amount))
}

func doBatchUpdate(ic *runtime.InvokeContext, args []byte) error {
	params, err := decodeBatchUpdate(args)
	if err != nil {
		return err
	}
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	trader, err := ic.Key(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(cuBase); err != nil {
		return err
	}
	book, err := marketBook(ic, 1)
	if err != nil {
		return err
	}
	seatIdx, err := resolveSeat(ic, book, trader, params.SeatHint)
	if err != nil {
		return err
	}

	for _, c := range params.Cancels {
		if err := cancelOne(ic, book, seatIdx, c); err != nil {
			return err
		}
	}

	for _, p := range params.Places {
		idx, visited, ok := book.FindFree()
		if err := ic.Charge(uint64(visited) * cuFreeVisit); err != nil {
			return err
		}
		if !ok {
			idx, err = growMarket(ic, 0, 1, GrowBlocks)
			if err != nil {
				return err
			}
			book, err = marketBook(ic, 1)
			if err != nil {
				return err
			}
		}
		if err := placeOne(ic, book, seatIdx, idx, p); err != nil {
			return err
		}
	}
	return nil
}

func cancelOne(ic *runtime.InvokeContext, book *orderbook.Book, seatIdx int, c CancelOrderParams) error {
	var idx int
	if c.IndexHint != orderbook.NilIndex {
		if err := ic.Charge(cuCancelHint); err != nil {
			return err
		}
		idx = int(c.IndexHint)
		if idx >= book.Capacity() || book.Kind(idx) != orderbook.BlockOrder {
			return errors.Wrapf(runtime.ErrInvalidData, "cancel hint %d", c.IndexHint)
		}
	} else {
		var visited int
		var ok bool
		idx, visited, ok = book.FindOrderBySeq(c.Seq)
		if err := ic.Charge(uint64(visited) * cuOrderVisit); err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(runtime.ErrInvalidData, "cancel seq %d not found", c.Seq)
		}
	}
	o, err := book.Order(idx)
	if err != nil {
		return err
	}
	if o.Seq != c.Seq || o.SeatIndex != uint32(seatIdx) {
		return errors.Wrapf(runtime.ErrInvalidData, "cancel seq %d mismatch at block %d", c.Seq, idx)
	}
	if err := ic.Charge(cuCancel); err != nil {
		return err
	}
	seat, err := book.Seat(seatIdx)
	if err != nil {
		return err
	}
	if o.IsBid {
		seat.QuoteAtoms += orderbook.QuoteAtoms(o.BaseAtoms, o.PriceMantissa, o.PriceExponent)
	} else {
		seat.BaseAtoms += o.BaseAtoms
	}
	book.SetSeat(seatIdx, seat)
	book.Free(idx)
	return nil
}

func placeOne(ic *runtime.InvokeContext, book *orderbook.Book, seatIdx, idx int, p PlaceOrderParams) error {
	if p.PriceExponent > orderbook.MaxPriceExponent || p.PriceExponent < -orderbook.MaxPriceExponent {
		return errors.Wrapf(runtime.ErrInvalidData, "price exponent %d", p.PriceExponent)
	}
	if err := ic.Charge(cuPlace); err != nil {
		return err
	}
	seat, err := book.Seat(seatIdx)
	if err != nil {
		return err
	}
	if p.IsBid {
		quote := orderbook.QuoteAtoms(p.BaseAtoms, p.PriceMantissa, p.PriceExponent)
		if seat.QuoteAtoms < quote {
			return errors.Wrap(runtime.ErrInsufficientFunds, "place bid")
		}
		seat.QuoteAtoms -= quote
	} else {
		if seat.BaseAtoms < p.BaseAtoms {
			return errors.Wrap(runtime.ErrInsufficientFunds, "place ask")
		}
		seat.BaseAtoms -= p.BaseAtoms
	}
	book.SetSeat(seatIdx, seat)
	book.SetOrder(idx, orderbook.Order{
		SeatIndex:     uint32(seatIdx),
		IsBid:         p.IsBid,
		PriceMantissa: p.PriceMantissa,
		PriceExponent: p.PriceExponent,
		BaseAtoms:     p.BaseAtoms,
		Seq:           book.NextSeq(),
	})
	return nil
}

func doSwap(ic *runtime.InvokeContext, args []byte) error {
	baseAtoms, isBuy, err := decodeSwap(args)
	if err != nil {
		return err
	}
	if !isBuy {
		return errors.Wrap(runtime.ErrInvalidData, "market sell not supported")
	}
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	taker, err := ic.Key(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(cuSwapBase); err != nil {
		return err
	}
	marketKey, err := ic.Key(1)
	if err != nil {
		return err
	}
	book, err := marketBook(ic, 1)
	if err != nil {
		return err
	}

	asks := book.Asks()
	if err := ic.Charge(uint64(len(asks)) * cuOrderVisit); err != nil {
		return err
	}

	remaining := baseAtoms
	var quoteOwed uint64
	for _, ask := range asks {
		if remaining == 0 {
			break
		}
		if err := ic.Charge(cuMatch); err != nil {
			return err
		}
		fill := ask.Order.BaseAtoms
		if fill > remaining {
			fill = remaining
		}
		quote := orderbook.QuoteAtoms(fill, ask.Order.PriceMantissa, ask.Order.PriceExponent)
		quoteOwed += quote
		remaining -= fill

		makerSeat, err := book.Seat(int(ask.Order.SeatIndex))
		if err != nil {
			return err
		}
		makerSeat.QuoteAtoms += quote
		book.SetSeat(int(ask.Order.SeatIndex), makerSeat)

		if fill == ask.Order.BaseAtoms {
			book.Free(int(ask.Index))
		} else {
			o := ask.Order
			o.BaseAtoms -= fill
			book.SetOrder(int(ask.Index), o)
		}
	}
	if remaining > 0 {
		return errors.Wrapf(runtime.ErrInsufficientFunds, "swap: %d base atoms unfilled", remaining)
	}

	takerBase, err := ic.Key(2)
	if err != nil {
		return err
	}
	takerQuote, err := ic.Key(3)
	if err != nil {
		return err
	}
	vaultBase, err := ic.Key(4)
	if err != nil {
		return err
	}
	vaultQuote, err := ic.Key(5)
	if err != nil {
		return err
	}
	if err := ic.Invoke(token.Transfer(takerQuote, vaultQuote, taker, quoteOwed)); err != nil {
		return err
	}
	return ic.Invoke(token.Transfer(vaultBase, takerBase, marketKey, baseAtoms))
}

func doExpand(ic *runtime.InvokeContext, args []byte) error {
	blocks, err := decodeExpand(args)
	if err != nil {
		return err
	}
	if blocks == 0 || blocks > MaxExpandBlocks {
		return errors.Wrapf(runtime.ErrInvalidData, "expand by %d blocks", blocks)
	}
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	if _, err := marketBook(ic, 1); err != nil {
		return err
	}
	_, err = growMarket(ic, 0, 1, int(blocks))
	return err
}

// growMarket appends blocks to the market account, pulling the rent
// difference from the payer. It returns the index of the first new
// block.
func growMarket(ic *runtime.InvokeContext, payerIdx, marketIdx, blocks int) (int, error) {
	if err := ic.Charge(cuExpand); err != nil {
		return 0, err
	}
	market, err := ic.WritableAccount(marketIdx)
	if err != nil {
		return 0, err
	}
	first := (len(market.Data) - orderbook.HeaderLen) / orderbook.BlockLen
	newLen := len(market.Data) + blocks*orderbook.BlockLen

	if need := runtime.RentFor(newLen); market.Lamports < need {
		payerKey, err := ic.Key(payerIdx)
		if err != nil {
			return 0, err
		}
		marketKey, err := ic.Key(marketIdx)
		if err != nil {
			return 0, err
		}
		if err := ic.Invoke(runtime.SystemTransfer(payerKey, marketKey, need-market.Lamports)); err != nil {
			return 0, err
		}
	}
	if err := ic.Resize(marketIdx, newLen); err != nil {
		return 0, err
	}
	return first, nil
}

// marketBook wraps the market account at the given index.
func marketBook(ic *runtime.InvokeContext, i int) (*orderbook.Book, error) {
	market, err := ic.WritableAccount(i)
	if err != nil {
		return nil, err
	}
	return orderbook.Wrap(market.Data, Magic)
}

// resolveSeat locates the trader's seat, verifying a hint when one is
// supplied and falling back to a charged scan otherwise.
func resolveSeat(ic *runtime.InvokeContext, book *orderbook.Book, trader runtime.Pubkey, hint uint32) (int, error) {
	if hint != orderbook.NilIndex {
		if err := ic.Charge(cuSeatHint); err != nil {
			return 0, err
		}
		idx := int(hint)
		if idx >= book.Capacity() {
			return 0, errors.Wrapf(runtime.ErrInvalidData, "seat hint %d out of range", hint)
		}
		seat, err := book.Seat(idx)
		if err != nil {
			return 0, err
		}
		if seat.Trader != trader {
			return 0, errors.Wrapf(runtime.ErrInvalidData, "seat hint %d trader mismatch", hint)
		}
		return idx, nil
	}
	idx, visited, ok := book.FindSeat(trader)
	if err := ic.Charge(uint64(visited) * cuSeatVisit); err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Wrapf(runtime.ErrInvalidData, "no seat for trader %s", trader.Short())
	}
	return idx, nil
}

// vaultSide reports whether the vault at account index i holds the
// market's base mint.
func vaultSide(ic *runtime.InvokeContext, book *orderbook.Book, i int) (bool, error) {
	vault, err := ic.Account(i)
	if err != nil {
		return false, err
	}
	ta, err := token.DecodeAccount(vault.Data)
	if err != nil {
		return false, err
	}
	switch ta.Mint {
	case book.BaseMint():
		return true, nil
	case book.QuoteMint():
		return false, nil
	}
	return false, errors.Wrap(runtime.ErrInvalidData, "vault mint not in market")
}
