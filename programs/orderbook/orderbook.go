// Package orderbook is the market account layout shared by the two
// program targets: a fixed header followed by uniform 64-byte blocks,
// each holding a trader seat, a resting order, or nothing. Capacity
// is implied by the account's data length, so growing the book is an
// account resize.
package orderbook

import (
	"encoding/binary"
	"math/bits"
	"sort"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/runtime"
)

const (
	// HeaderLen is the fixed market header size in bytes.
	HeaderLen = 96
	// BlockLen is the size of one seat/order block.
	BlockLen = 64
	// Version is the current layout version.
	Version = 1
)

// Block kinds.
const (
	BlockFree byte = iota
	BlockSeat
	BlockOrder
)

// NilIndex marks an absent block-index hint.
const NilIndex = ^uint32(0)

// MaxPriceExponent bounds the decimal exponent of order prices so
// price comparison stays within 128 bits.
const MaxPriceExponent = 9

// Size returns the account data length for a book with the given
// block capacity.
func Size(blocks int) int {
	return HeaderLen + blocks*BlockLen
}

// Seat is a trader's registration and withheld balances.
type Seat struct {
	Trader     runtime.Pubkey
	BaseAtoms  uint64
	QuoteAtoms uint64
}

// Order is one resting order.
type Order struct {
	SeatIndex     uint32
	IsBid         bool
	PriceMantissa uint32
	PriceExponent int8
	BaseAtoms     uint64
	Seq           uint64
}

// IndexedOrder pairs a resting order with its block index.
type IndexedOrder struct {
	Index uint32
	Order Order
}

// Book is a view over a market account's data. Mutations write
// through to the underlying slice.
type Book struct {
	data []byte
}

// Init formats raw account data as an empty book.
func Init(data []byte, magic uint32, base, quote runtime.Pubkey) (*Book, error) {
	if len(data) < HeaderLen || (len(data)-HeaderLen)%BlockLen != 0 {
		return nil, errors.Wrapf(runtime.ErrInvalidData, "market account size %d", len(data))
	}
	binary.LittleEndian.PutUint32(data[0:4], magic)
	data[4] = Version
	copy(data[8:40], base[:])
	copy(data[40:72], quote[:])
	binary.LittleEndian.PutUint64(data[72:80], 0)
	return &Book{data: data}, nil
}

// Wrap views existing account data as a book, checking the magic.
func Wrap(data []byte, magic uint32) (*Book, error) {
	if len(data) < HeaderLen || (len(data)-HeaderLen)%BlockLen != 0 {
		return nil, errors.Wrapf(runtime.ErrInvalidData, "market account size %d", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != magic {
		return nil, errors.Wrap(runtime.ErrInvalidData, "market magic mismatch")
	}
	if data[4] != Version {
		return nil, errors.Wrapf(runtime.ErrInvalidData, "market version %d", data[4])
	}
	return &Book{data: data}, nil
}

// Capacity returns the number of blocks the account can hold.
func (b *Book) Capacity() int {
	return (len(b.data) - HeaderLen) / BlockLen
}

// BaseMint returns the market's base mint.
func (b *Book) BaseMint() runtime.Pubkey {
	var p runtime.Pubkey
	copy(p[:], b.data[8:40])
	return p
}

// QuoteMint returns the market's quote mint.
func (b *Book) QuoteMint() runtime.Pubkey {
	var p runtime.Pubkey
	copy(p[:], b.data[40:72])
	return p
}

// NextSeq returns the next order sequence number and advances it.
func (b *Book) NextSeq() uint64 {
	seq := binary.LittleEndian.Uint64(b.data[72:80])
	binary.LittleEndian.PutUint64(b.data[72:80], seq+1)
	return seq
}

// OrderSeq returns the current order sequence counter without
// advancing it.
func (b *Book) OrderSeq() uint64 {
	return binary.LittleEndian.Uint64(b.data[72:80])
}

func (b *Book) block(i int) []byte {
	off := HeaderLen + i*BlockLen
	return b.data[off : off+BlockLen]
}

// Kind returns the kind of block i.
func (b *Book) Kind(i int) byte {
	return b.block(i)[0]
}

// Free marks block i unused.
func (b *Book) Free(i int) {
	blk := b.block(i)
	for j := range blk {
		blk[j] = 0
	}
}

// Seat decodes block i as a seat.
func (b *Book) Seat(i int) (Seat, error) {
	blk := b.block(i)
	if blk[0] != BlockSeat {
		return Seat{}, errors.Wrapf(runtime.ErrInvalidData, "block %d is not a seat", i)
	}
	var s Seat
	copy(s.Trader[:], blk[8:40])
	s.BaseAtoms = binary.LittleEndian.Uint64(blk[40:48])
	s.QuoteAtoms = binary.LittleEndian.Uint64(blk[48:56])
	return s, nil
}

// SetSeat writes a seat into block i.
func (b *Book) SetSeat(i int, s Seat) {
	blk := b.block(i)
	blk[0] = BlockSeat
	copy(blk[8:40], s.Trader[:])
	binary.LittleEndian.PutUint64(blk[40:48], s.BaseAtoms)
	binary.LittleEndian.PutUint64(blk[48:56], s.QuoteAtoms)
}

// Order decodes block i as a resting order.
func (b *Book) Order(i int) (Order, error) {
	blk := b.block(i)
	if blk[0] != BlockOrder {
		return Order{}, errors.Wrapf(runtime.ErrInvalidData, "block %d is not an order", i)
	}
	var o Order
	o.IsBid = blk[1] != 0
	o.PriceExponent = int8(blk[2])
	o.SeatIndex = binary.LittleEndian.Uint32(blk[4:8])
	o.PriceMantissa = binary.LittleEndian.Uint32(blk[8:12])
	o.BaseAtoms = binary.LittleEndian.Uint64(blk[16:24])
	o.Seq = binary.LittleEndian.Uint64(blk[24:32])
	return o, nil
}

// SetOrder writes a resting order into block i.
func (b *Book) SetOrder(i int, o Order) {
	blk := b.block(i)
	blk[0] = BlockOrder
	if o.IsBid {
		blk[1] = 1
	} else {
		blk[1] = 0
	}
	blk[2] = byte(o.PriceExponent)
	binary.LittleEndian.PutUint32(blk[4:8], o.SeatIndex)
	binary.LittleEndian.PutUint32(blk[8:12], o.PriceMantissa)
	binary.LittleEndian.PutUint64(blk[16:24], o.BaseAtoms)
	binary.LittleEndian.PutUint64(blk[24:32], o.Seq)
}

// FindSeat scans for the trader's seat. It returns the block index
// and the number of blocks visited, which the caller charges for.
func (b *Book) FindSeat(trader runtime.Pubkey) (index int, visited int, ok bool) {
	n := b.Capacity()
	for i := 0; i < n; i++ {
		visited++
		if b.Kind(i) != BlockSeat {
			continue
		}
		s, _ := b.Seat(i)
		if s.Trader == trader {
			return i, visited, true
		}
	}
	return 0, visited, false
}

// FindFree scans for the first unused block.
func (b *Book) FindFree() (index int, visited int, ok bool) {
	n := b.Capacity()
	for i := 0; i < n; i++ {
		visited++
		if b.Kind(i) == BlockFree {
			return i, visited, true
		}
	}
	return 0, visited, false
}

// FindOrderBySeq scans for the order with the given sequence number.
func (b *Book) FindOrderBySeq(seq uint64) (index int, visited int, ok bool) {
	n := b.Capacity()
	for i := 0; i < n; i++ {
		visited++
		if b.Kind(i) != BlockOrder {
			continue
		}
		o, _ := b.Order(i)
		if o.Seq == seq {
			return i, visited, true
		}
	}
	return 0, visited, false
}

// Orders returns every resting order in ascending block order.
func (b *Book) Orders() []IndexedOrder {
	var out []IndexedOrder
	n := b.Capacity()
	for i := 0; i < n; i++ {
		if b.Kind(i) != BlockOrder {
			continue
		}
		o, _ := b.Order(i)
		out = append(out, IndexedOrder{Index: uint32(i), Order: o})
	}
	return out
}

// Asks returns resting asks in matching order: ascending price, then
// ascending sequence number.
func (b *Book) Asks() []IndexedOrder {
	var asks []IndexedOrder
	for _, io := range b.Orders() {
		if !io.Order.IsBid {
			asks = append(asks, io)
		}
	}
	sort.Slice(asks, func(i, j int) bool {
		a, c := asks[i].Order, asks[j].Order
		if cmp := ComparePrice(a.PriceMantissa, a.PriceExponent, c.PriceMantissa, c.PriceExponent); cmp != 0 {
			return cmp < 0
		}
		return a.Seq < c.Seq
	})
	return asks
}

// ComparePrice compares m1*10^e1 with m2*10^e2 without overflow.
// Exponents must be within ±MaxPriceExponent.
func ComparePrice(m1 uint32, e1 int8, m2 uint32, e2 int8) int {
	d := int(e1) - int(e2)
	ahi, alo := uint64(0), uint64(m1)
	bhi, blo := uint64(0), uint64(m2)
	if d > 0 {
		ahi, alo = bits.Mul64(alo, pow10(d))
	} else if d < 0 {
		bhi, blo = bits.Mul64(blo, pow10(-d))
	}
	switch {
	case ahi != bhi:
		if ahi < bhi {
			return -1
		}
		return 1
	case alo != blo:
		if alo < blo {
			return -1
		}
		return 1
	}
	return 0
}

func pow10(n int) uint64 {
	v := uint64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// QuoteAtoms returns the quote amount for baseAtoms at the given
// price, applying the decimal exponent.
func QuoteAtoms(baseAtoms uint64, mantissa uint32, exponent int8) uint64 {
	v := baseAtoms * uint64(mantissa)
	if exponent >= 0 {
		return v * pow10(int(exponent))
	}
	return v / pow10(int(-exponent))
}
