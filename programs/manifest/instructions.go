package manifest

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/programs/orderbook"
	"github.com/dropset/cubench/runtime"
)

// Instruction tags.
const (
	tagCreateMarket byte = iota
	tagClaimSeat
	tagDeposit
	tagWithdraw
	tagBatchUpdate
	tagSwap
	tagExpand
)

// PlaceOrderParams describes one order in a BatchUpdate.
type PlaceOrderParams struct {
	BaseAtoms     uint64
	PriceMantissa uint32
	PriceExponent int8
	IsBid         bool
}

// CancelOrderParams describes one cancel in a BatchUpdate. IndexHint
// is the order's block index when the client knows it, or
// orderbook.NilIndex to make the program scan by sequence number.
type CancelOrderParams struct {
	Seq       uint64
	IndexHint uint32
}

// NewCancelWithHint builds cancel params carrying a block index hint.
func NewCancelWithHint(seq uint64, hint uint32) CancelOrderParams {
	return CancelOrderParams{Seq: seq, IndexHint: hint}
}

// NewCancel builds cancel params without a hint.
func NewCancel(seq uint64) CancelOrderParams {
	return CancelOrderParams{Seq: seq, IndexHint: orderbook.NilIndex}
}

// CreateMarketInstruction initializes a pre-allocated market account.
func CreateMarketInstruction(payer, market, baseMint, quoteMint runtime.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaWritableSigner(payer),
			runtime.MetaWritable(market),
			runtime.Meta(baseMint),
			runtime.Meta(quoteMint),
		},
		Data: []byte{tagCreateMarket},
	}
}

// ClaimSeatInstruction registers the trader on the market.
func ClaimSeatInstruction(market, trader runtime.Pubkey) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaWritableSigner(trader),
			runtime.MetaWritable(market),
		},
		Data: []byte{tagClaimSeat},
	}
}

// DepositInstruction moves tokens from the trader's token account
// into the market vault and credits the trader's seat.
func DepositInstruction(market, trader, traderToken, vault runtime.Pubkey, amount uint64, seatHint uint32) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
			runtime.MetaWritable(traderToken),
			runtime.MetaWritable(vault),
			runtime.Meta(runtime.TokenProgramID),
		},
		Data: encodeAmountHint(tagDeposit, amount, seatHint),
	}
}

// WithdrawInstruction debits the trader's seat and moves tokens from
// the market vault back to the trader's token account.
func WithdrawInstruction(market, trader, traderToken, vault runtime.Pubkey, amount uint64, seatHint uint32) runtime.Instruction {
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaSigner(trader),
			runtime.MetaWritable(market),
			runtime.MetaWritable(traderToken),
			runtime.MetaWritable(vault),
			runtime.Meta(runtime.TokenProgramID),
		},
		Data: encodeAmountHint(tagWithdraw, amount, seatHint),
	}
}

// BatchUpdateInstruction cancels then places orders in one
// instruction. The trader is writable because on-demand book growth
// pulls rent from them.
func BatchUpdateInstruction(market, trader runtime.Pubkey, seatHint uint32, cancels []CancelOrderParams, places []PlaceOrderParams) runtime.Instruction {
	data := []byte{tagBatchUpdate}
	data = binary.LittleEndian.AppendUint32(data, seatHint)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(cancels)))
	for _, c := range cancels {
		data = binary.LittleEndian.AppendUint64(data, c.Seq)
		data = binary.LittleEndian.AppendUint32(data, c.IndexHint)
	}
	data = binary.LittleEndian.AppendUint32(data, uint32(len(places)))
	for _, p := range places {
		data = binary.LittleEndian.AppendUint64(data, p.BaseAtoms)
		data = binary.LittleEndian.AppendUint32(data, p.PriceMantissa)
		data = append(data, byte(p.PriceExponent))
		if p.IsBid {
			data = append(data, 1)
		} else {
			data = append(data, 0)
		}
	}
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaWritableSigner(trader),
			runtime.MetaWritable(market),
			runtime.Meta(runtime.SystemProgramID),
		},
		Data: data,
	}
}

// SwapInstruction buys baseAtoms of the base token against the
// resting asks.
func SwapInstruction(market, taker, takerBase, takerQuote, vaultBase, vaultQuote runtime.Pubkey, baseAtoms uint64) runtime.Instruction {
	data := []byte{tagSwap}
	data = binary.LittleEndian.AppendUint64(data, baseAtoms)
	data = append(data, 1) // market buy
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

// ExpandInstruction grows the market by the given number of blocks,
// rent paid by payer.
func ExpandInstruction(payer, market runtime.Pubkey, blocks uint32) runtime.Instruction {
	data := []byte{tagExpand}
	data = binary.LittleEndian.AppendUint32(data, blocks)
	return runtime.Instruction{
		ProgramID: ID,
		Accounts: []runtime.AccountMeta{
			runtime.MetaWritableSigner(payer),
			runtime.MetaWritable(market),
			runtime.Meta(runtime.SystemProgramID),
		},
		Data: data,
	}
}

func encodeAmountHint(tag byte, amount uint64, hint uint32) []byte {
	data := []byte{tag}
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint32(data, hint)
	return data
}

func decodeAmountHint(args []byte) (amount uint64, hint uint32, err error) {
	if len(args) != 12 {
		return 0, 0, errors.Wrap(runtime.ErrInvalidData, "amount/hint args")
	}
	return binary.LittleEndian.Uint64(args[:8]), binary.LittleEndian.Uint32(args[8:12]), nil
}

type batchUpdateParams struct {
	SeatHint uint32
	Cancels  []CancelOrderParams
	Places   []PlaceOrderParams
}

func decodeBatchUpdate(args []byte) (batchUpdateParams, error) {
	var p batchUpdateParams
	if len(args) < 8 {
		return p, errors.Wrap(runtime.ErrInvalidData, "batch update args")
	}
	p.SeatHint = binary.LittleEndian.Uint32(args[0:4])
	numCancels := int(binary.LittleEndian.Uint32(args[4:8]))
	off := 8
	if len(args) < off+numCancels*12+4 {
		return p, errors.Wrap(runtime.ErrInvalidData, "batch update cancels")
	}
	for i := 0; i < numCancels; i++ {
		p.Cancels = append(p.Cancels, CancelOrderParams{
			Seq:       binary.LittleEndian.Uint64(args[off : off+8]),
			IndexHint: binary.LittleEndian.Uint32(args[off+8 : off+12]),
		})
		off += 12
	}
	numPlaces := int(binary.LittleEndian.Uint32(args[off : off+4]))
	off += 4
	if len(args) != off+numPlaces*14 {
		return p, errors.Wrap(runtime.ErrInvalidData, "batch update places")
	}
	for i := 0; i < numPlaces; i++ {
		p.Places = append(p.Places, PlaceOrderParams{
			BaseAtoms:     binary.LittleEndian.Uint64(args[off : off+8]),
			PriceMantissa: binary.LittleEndian.Uint32(args[off+8 : off+12]),
			PriceExponent: int8(args[off+12]),
			IsBid:         args[off+13] != 0,
		})
		off += 14
	}
	return p, nil
}

func decodeSwap(args []byte) (baseAtoms uint64, isBuy bool, err error) {
	if len(args) != 9 {
		return 0, false, errors.Wrap(runtime.ErrInvalidData, "swap args")
	}
	return binary.LittleEndian.Uint64(args[:8]), args[8] != 0, nil
}

func decodeExpand(args []byte) (uint32, error) {
	if len(args) != 4 {
		return 0, errors.Wrap(runtime.ErrInvalidData, "expand args")
	}
	return binary.LittleEndian.Uint32(args), nil
}
