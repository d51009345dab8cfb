package phoenix

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/runtime"
)

// Instruction tags.
const (
	tagCreateMarket = iota
	tagRequestSeat
	tagDeposit
	tagWithdraw
	tagPlaceLimit
	tagPlaceMultiple
	tagCancelAll
	tagSwap
)

// OrderPacket describes one limit order. Prices are whole ticks; the
// book stores them with a zero exponent.
type OrderPacket struct {
	BaseAtoms    uint64
	PriceInTicks uint64
	IsBid        bool
}

// CreateMarketInstruction initializes a pre-sized market account. The
// account must already hold Size(BookSlots) bytes owned by the program.
func CreateMarketInstruction(creator, market, baseMint, quoteMint runtime.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(creator),
			runtime.MetaWritable(market),
			runtime.Meta(baseMint),
			runtime.Meta(quoteMint),
		},
		Data: []byte{tagCreateMarket},
	}
}

// RequestSeatInstruction claims a trader seat on the market.
func RequestSeatInstruction(market, trader runtime.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
		},
		Data: []byte{tagRequestSeat},
	}
}

// DepositInstruction moves funds from the trader's token accounts into
// the market vaults and credits the trader's seat. Either amount may
// be zero.
func DepositInstruction(market, trader, traderBase, traderQuote, vaultBase, vaultQuote runtime.Pubkey, baseAtoms, quoteAtoms uint64) runtime.Instruction {
	return fundsInstruction(tagDeposit, market, trader, traderBase, traderQuote, vaultBase, vaultQuote, baseAtoms, quoteAtoms)
}

// WithdrawInstruction debits the trader's seat and moves funds from the
// market vaults back to the trader's token accounts.
func WithdrawInstruction(market, trader, traderBase, traderQuote, vaultBase, vaultQuote runtime.Pubkey, baseAtoms, quoteAtoms uint64) runtime.Instruction {
	return fundsInstruction(tagWithdraw, market, trader, traderBase, traderQuote, vaultBase, vaultQuote, baseAtoms, quoteAtoms)
}

func fundsInstruction(tag byte, market, trader, traderBase, traderQuote, vaultBase, vaultQuote runtime.Pubkey, baseAtoms, quoteAtoms uint64) runtime.Instruction {
	data := make([]byte, 17)
	data[0] = tag
	binary.LittleEndian.PutUint64(data[1:], baseAtoms)
	binary.LittleEndian.PutUint64(data[9:], quoteAtoms)
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
			runtime.MetaWritable(traderBase),
			runtime.MetaWritable(traderQuote),
			runtime.MetaWritable(vaultBase),
			runtime.MetaWritable(vaultQuote),
			runtime.Meta(runtime.TokenProgramID),
		},
		Data: data,
	}
}

// PlaceLimitInstruction posts a single resting order.
func PlaceLimitInstruction(market, trader runtime.Pubkey, order OrderPacket) runtime.Instruction {
	data := make([]byte, 1, 1+orderPacketLen)
	data[0] = tagPlaceLimit
	data = appendOrder(data, order)
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
		},
		Data: data,
	}
}

// PlaceMultipleInstruction posts a batch of post-only orders in one
// instruction.
func PlaceMultipleInstruction(market, trader runtime.Pubkey, orders []OrderPacket) runtime.Instruction {
	data := make([]byte, 5, 5+len(orders)*orderPacketLen)
	data[0] = tagPlaceMultiple
	binary.LittleEndian.PutUint32(data[1:], uint32(len(orders)))
	for _, o := range orders {
		data = appendOrder(data, o)
	}
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
		},
		Data: data,
	}
}

// CancelAllInstruction removes every resting order owned by the trader
// and returns the locked funds to the seat.
func CancelAllInstruction(market, trader runtime.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
		},
		Data: []byte{tagCancelAll},
	}
}

// SwapInstruction buys baseAtoms immediately against resting asks. The
// full amount must fill or the instruction fails.
func SwapInstruction(market, taker, takerBase, takerQuote, vaultBase, vaultQuote runtime.Pubkey, baseAtoms uint64) runtime.Instruction {
	data := make([]byte, 9)
	data[0] = tagSwap
	binary.LittleEndian.PutUint64(data[1:], baseAtoms)
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(taker),
			runtime.MetaWritable(market),
			runtime.MetaWritable(takerBase),
			runtime.MetaWritable(takerQuote),
			runtime.MetaWritable(vaultBase),
			runtime.MetaWritable(vaultQuote),
			runtime.Meta(runtime.TokenProgramID),
		},
		Data: data,
	}
}

const orderPacketLen = 17

func appendOrder(data []byte, o OrderPacket) []byte {
	var buf [orderPacketLen]byte
	binary.LittleEndian.PutUint64(buf[0:], o.BaseAtoms)
	binary.LittleEndian.PutUint64(buf[8:], o.PriceInTicks)
	if o.IsBid {
		buf[16] = 1
	}
	return append(data, buf[:]...)
}

func decodeOrders(args []byte, n int) ([]OrderPacket, error) {
	if len(args) != n*orderPacketLen {
		return nil, errors.Wrap(runtime.ErrInvalidData, "order packet length")
	}
	orders := make([]OrderPacket, n)
	for i := range orders {
		p := args[i*orderPacketLen:]
		orders[i] = OrderPacket{
			BaseAtoms:    binary.LittleEndian.Uint64(p[0:]),
			PriceInTicks: binary.LittleEndian.Uint64(p[8:]),
			IsBid:        p[16] == 1,
		}
	}
	return orders, nil
}

func decodeCountedOrders(args []byte) ([]OrderPacket, error) {
	n := int(binary.LittleEndian.Uint32(args[0:4]))
	return decodeOrders(args[4:], n)
}

func decodeOneAmount(args []byte) (uint64, error) {
	if len(args) != 8 {
		return 0, errors.Wrap(runtime.ErrInvalidData, "amount length")
	}
	return binary.LittleEndian.Uint64(args), nil
}

func decodeTwoAmounts(args []byte) (base, quote uint64, err error) {
	if len(args) != 16 {
		return 0, 0, errors.Wrap(runtime.ErrInvalidData, "amounts length")
	}
	return binary.LittleEndian.Uint64(args[0:]), binary.LittleEndian.Uint64(args[8:]), nil
}
