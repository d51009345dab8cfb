// Package phoenix is the phoenix-style program target: an order book
// whose storage is fully allocated when the market is created, so no
// instruction ever grows the account. Its instruction formats carry
// no index hints; traders are located by charged scans over occupied
// state.
package phoenix

import (
	"github.com/pkg/errors"

	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/runtime"
	"github.com/dropset/cubench/runtime/token"
)

// ID is the program's address.
var ID = runtime.DerivePubkey("program", "phoenix")

// Magic identifies phoenix market accounts.
const Magic uint32 = 0x50484e58 // "PHNX"

// BookSlots is the fixed block capacity of every market.
const BookSlots = 256

// Compute-unit charges. Scans charge per occupied block visited.
const (
	cuBase         = 1_100
	cuSeatVisit    = 35
	cuFreeVisit    = 10
	cuPlace        = 1_400
	cuCancelBase   = 900
	cuCancelOrder  = 480
	cuOrderVisit   = 40
	cuDeposit      = 1_050
	cuWithdraw     = 1_150
	cuSwapBase     = 2_000
	cuMatch        = 950
)

// Install registers the program and its account image with the bank.
func Install(b *runtime.Bank, image []byte) {
	b.RegisterProgram(ID, image, process)
}

func process(ic *runtime.InvokeContext) error {
	data := ic.Data()
	if len(data) == 0 {
		return errors.Wrap(runtime.ErrInvalidData, "empty phoenix instruction")
	}
	switch data[0] {
	case tagCreateMarket:
		return doCreateMarket(ic)
	case tagRequestSeat:
		return doRequestSeat(ic)
	case tagDeposit:
		return doDepositWithdraw(ic, data[1:], true)
	case tagWithdraw:
		return doDepositWithdraw(ic, data[1:], false)
	case tagPlaceLimit:
		return doPlaceLimit(ic, data[1:])
	case tagPlaceMultiple:
		return doPlaceMultiple(ic, data[1:])
	case tagCancelAll:
		return doCancelAll(ic)
	case tagSwap:
		return doSwap(ic, data[1:])
	default:
		return errors.Wrapf(runtime.ErrInvalidData, "phoenix tag %d", data[0])
	}
}

func doCreateMarket(ic *runtime.InvokeContext) error {
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
	if len(market.Data) != orderbook.Size(BookSlots) {
		return errors.Wrapf(runtime.ErrInvalidData, "market account size %d", len(market.Data))
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

func doRequestSeat(ic *runtime.InvokeContext) error {
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
		return errors.Wrap(runtime.ErrAccountInUse, "seat already requested")
	}
	idx, visited, ok := book.FindFree()
	if err := ic.Charge(uint64(visited) * cuFreeVisit); err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(runtime.ErrInsufficientFunds, "book full")
	}
	book.SetSeat(idx, orderbook.Seat{Trader: trader})
	return nil
}

func doDepositWithdraw(ic *runtime.InvokeContext, args []byte, deposit bool) error {
	baseAtoms, quoteAtoms, err := decodeTwoAmounts(args)
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
	if deposit {
		err = ic.Charge(cuDeposit)
	} else {
		err = ic.Charge(cuWithdraw)
	}
	if err != nil {
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
	seatIdx, visited, ok := book.FindSeat(trader)
	if err := ic.Charge(uint64(visited) * cuSeatVisit); err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(runtime.ErrInvalidData, "no seat for trader %s", trader.Short())
	}
	seat, err := book.Seat(seatIdx)
	if err != nil {
		return err
	}

	traderBase, err := ic.Key(2)
	if err != nil {
		return err
	}
	traderQuote, err := ic.Key(3)
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

	if deposit {
		seat.BaseAtoms += baseAtoms
		seat.QuoteAtoms += quoteAtoms
	} else {
		if seat.BaseAtoms < baseAtoms || seat.QuoteAtoms < quoteAtoms {
			return errors.Wrap(runtime.ErrInsufficientFunds, "withdraw")
		}
		seat.BaseAtoms -= baseAtoms
		seat.QuoteAtoms -= quoteAtoms
	}
	book.SetSeat(seatIdx, seat)

	if baseAtoms > 0 {
		ix := token.Transfer(traderBase, vaultBase, trader, baseAtoms)
		if !deposit {
			ix = token.Transfer(vaultBase, traderBase, marketKey, baseAtoms)
		}
		if err := ic.Invoke(ix); err != nil {
			return err
		}
	}
	if quoteAtoms > 0 {
		ix := token.Transfer(traderQuote, vaultQuote, trader, quoteAtoms)
		if !deposit {
			ix = token.Transfer(vaultQuote, traderQuote, marketKey, quoteAtoms)
		}
		if err := ic.Invoke(ix); err != nil {
			return err
		}
	}
	return nil
}

func doPlaceLimit(ic *runtime.InvokeContext, args []byte) error {
	orders, err := decodeOrders(args, 1)
	if err != nil {
		return err
	}
	return placeOrders(ic, orders)
}

func doPlaceMultiple(ic *runtime.InvokeContext, args []byte) error {
	if len(args) < 4 {
		return errors.Wrap(runtime.ErrInvalidData, "multiple order args")
	}
	orders, err := decodeCountedOrders(args)
	if err != nil {
		return err
	}
	return placeOrders(ic, orders)
}

func placeOrders(ic *runtime.InvokeContext, orders []OrderPacket) error {
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
	seatIdx, visited, ok := book.FindSeat(trader)
	if err := ic.Charge(uint64(visited) * cuSeatVisit); err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(runtime.ErrInvalidData, "no seat for trader %s", trader.Short())
	}

	for _, o := range orders {
		idx, visited, ok := book.FindFree()
		if err := ic.Charge(uint64(visited) * cuFreeVisit); err != nil {
			return err
		}
		if !ok {
			return errors.Wrap(runtime.ErrInsufficientFunds, "book full")
		}
		if err := ic.Charge(cuPlace); err != nil {
			return err
		}
		seat, err := book.Seat(seatIdx)
		if err != nil {
			return err
		}
		if o.IsBid {
			quote := orderbook.QuoteAtoms(o.BaseAtoms, uint32(o.PriceInTicks), 0)
			if seat.QuoteAtoms < quote {
				return errors.Wrap(runtime.ErrInsufficientFunds, "place bid")
			}
			seat.QuoteAtoms -= quote
		} else {
			if seat.BaseAtoms < o.BaseAtoms {
				return errors.Wrap(runtime.ErrInsufficientFunds, "place ask")
			}
			seat.BaseAtoms -= o.BaseAtoms
		}
		book.SetSeat(seatIdx, seat)
		book.SetOrder(idx, orderbook.Order{
			SeatIndex:     uint32(seatIdx),
			IsBid:         o.IsBid,
			PriceMantissa: uint32(o.PriceInTicks),
			PriceExponent: 0,
			BaseAtoms:     o.BaseAtoms,
			Seq:           book.NextSeq(),
		})
	}
	return nil
}

func doCancelAll(ic *runtime.InvokeContext) error {
	if err := ic.RequireSigner(0); err != nil {
		return err
	}
	trader, err := ic.Key(0)
	if err != nil {
		return err
	}
	if err := ic.Charge(cuCancelBase); err != nil {
		return err
	}
	book, err := marketBook(ic, 1)
	if err != nil {
		return err
	}
	seatIdx, visited, ok := book.FindSeat(trader)
	if err := ic.Charge(uint64(visited) * cuSeatVisit); err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(runtime.ErrInvalidData, "no seat for trader %s", trader.Short())
	}
	orders := book.Orders()
	if err := ic.Charge(uint64(len(orders)) * cuOrderVisit); err != nil {
		return err
	}
	seat, err := book.Seat(seatIdx)
	if err != nil {
		return err
	}
	for _, io := range orders {
		if io.Order.SeatIndex != uint32(seatIdx) {
			continue
		}
		if err := ic.Charge(cuCancelOrder); err != nil {
			return err
		}
		if io.Order.IsBid {
			seat.QuoteAtoms += orderbook.QuoteAtoms(io.Order.BaseAtoms, io.Order.PriceMantissa, io.Order.PriceExponent)
		} else {
			seat.BaseAtoms += io.Order.BaseAtoms
		}
		book.Free(int(io.Index))
	}
	book.SetSeat(seatIdx, seat)
	return nil
}

func doSwap(ic *runtime.InvokeContext, args []byte) error {
	baseAtoms, err := decodeOneAmount(args)
	if err != nil {
		return err
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

func marketBook(ic *runtime.InvokeContext, i int) (*orderbook.Book, error) {
	market, err := ic.WritableAccount(i)
	if err != nil {
		return nil, err
	}
	return orderbook.Wrap(market.Data, Magic)
}
