package orderbook

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/runtime"
)

const testMagic uint32 = 0x54455354

func newTestBook(t *testing.T, blocks int) *Book {
	t.Helper()
	base := runtime.DerivePubkey("ob-test", "base")
	quote := runtime.DerivePubkey("ob-test", "quote")
	b, err := Init(make([]byte, Size(blocks)), testMagic, base, quote)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestInitAndWrap(t *testing.T) {
	base := runtime.DerivePubkey("ob-test", "base")
	quote := runtime.DerivePubkey("ob-test", "quote")
	data := make([]byte, Size(8))
	if _, err := Init(data, testMagic, base, quote); err != nil {
		t.Fatal(err)
	}

	b, err := Wrap(data, testMagic)
	if err != nil {
		t.Fatal(err)
	}
	if b.Capacity() != 8 {
		t.Errorf("capacity: got %d, want 8", b.Capacity())
	}
	if b.BaseMint() != base || b.QuoteMint() != quote {
		t.Error("mints do not round-trip")
	}

	if _, err := Wrap(data, testMagic+1); errors.Cause(err) != runtime.ErrInvalidData {
		t.Errorf("wrong magic: got %v, want ErrInvalidData", err)
	}
	if _, err := Wrap(make([]byte, 16), testMagic); errors.Cause(err) != runtime.ErrInvalidData {
		t.Errorf("short data: got %v, want ErrInvalidData", err)
	}
}

func TestSeatAndOrderRoundTrip(t *testing.T) {
	b := newTestBook(t, 8)
	trader := runtime.DerivePubkey("ob-test", "trader")

	seat := Seat{Trader: trader, BaseAtoms: 11, QuoteAtoms: 22}
	b.SetSeat(0, seat)
	got, err := b.Seat(0)
	if err != nil {
		t.Fatal(err)
	}
	if got != seat {
		t.Errorf("seat: got %+v, want %+v", got, seat)
	}

	order := Order{SeatIndex: 0, IsBid: true, PriceMantissa: 1500, PriceExponent: -3, BaseAtoms: 99, Seq: 7}
	b.SetOrder(1, order)
	oGot, err := b.Order(1)
	if err != nil {
		t.Fatal(err)
	}
	if oGot != order {
		t.Errorf("order: got %+v, want %+v", oGot, order)
	}

	// Reading a block as the wrong kind fails.
	if _, err := b.Order(0); errors.Cause(err) != runtime.ErrInvalidData {
		t.Errorf("order at seat block: got %v, want ErrInvalidData", err)
	}

	b.Free(1)
	if b.Kind(1) != BlockFree {
		t.Error("freed block is not free")
	}
}

func TestSequenceNumbers(t *testing.T) {
	b := newTestBook(t, 4)
	if s := b.NextSeq(); s != 0 {
		t.Errorf("first seq: got %d, want 0", s)
	}
	if s := b.NextSeq(); s != 1 {
		t.Errorf("second seq: got %d, want 1", s)
	}
	if s := b.OrderSeq(); s != 2 {
		t.Errorf("counter: got %d, want 2", s)
	}
}

func TestScans(t *testing.T) {
	b := newTestBook(t, 8)
	trader := runtime.DerivePubkey("ob-test", "trader")

	b.SetSeat(0, Seat{Trader: trader})
	b.SetOrder(1, Order{SeatIndex: 0, BaseAtoms: 5, PriceMantissa: 10, Seq: b.NextSeq()})
	b.SetOrder(2, Order{SeatIndex: 0, BaseAtoms: 5, PriceMantissa: 20, Seq: b.NextSeq()})

	idx, visited, ok := b.FindSeat(trader)
	if !ok || idx != 0 || visited != 1 {
		t.Errorf("FindSeat = %d, %d, %v", idx, visited, ok)
	}
	idx, visited, ok = b.FindFree()
	if !ok || idx != 3 || visited != 4 {
		t.Errorf("FindFree = %d, %d, %v", idx, visited, ok)
	}
	idx, visited, ok = b.FindOrderBySeq(1)
	if !ok || idx != 2 || visited != 3 {
		t.Errorf("FindOrderBySeq = %d, %d, %v", idx, visited, ok)
	}
	if _, visited, ok := b.FindOrderBySeq(99); ok || visited != b.Capacity() {
		t.Errorf("absent seq: visited %d, ok %v", visited, ok)
	}
}

func TestAsksOrdering(t *testing.T) {
	b := newTestBook(t, 8)
	// Same price expressed at different exponents, a cheaper ask, and
	// a bid that must not appear.
	b.SetOrder(0, Order{PriceMantissa: 2000, PriceExponent: -3, Seq: 0})
	b.SetOrder(1, Order{PriceMantissa: 2, PriceExponent: 0, Seq: 1})
	b.SetOrder(2, Order{PriceMantissa: 1, PriceExponent: 0, Seq: 2})
	b.SetOrder(3, Order{IsBid: true, PriceMantissa: 9, Seq: 3})

	asks := b.Asks()
	if len(asks) != 3 {
		t.Fatalf("asks: got %d, want 3", len(asks))
	}
	wantSeqs := []uint64{2, 0, 1}
	for i, want := range wantSeqs {
		if asks[i].Order.Seq != want {
			t.Errorf("asks[%d].Seq = %d, want %d", i, asks[i].Order.Seq, want)
		}
	}
}

func TestComparePrice(t *testing.T) {
	cases := []struct {
		m1   uint32
		e1   int8
		m2   uint32
		e2   int8
		want int
	}{
		{1, 0, 1, 0, 0},
		{1500, -3, 15, -1, 0},
		{1, 0, 2, 0, -1},
		{2, 0, 1, 0, 1},
		{1, 9, 4294967295, 0, 1},
		{4294967295, -9, 1, 0, -1},
		{1, -9, 0, 0, 1},
	}
	for _, c := range cases {
		if got := ComparePrice(c.m1, c.e1, c.m2, c.e2); got != c.want {
			t.Errorf("ComparePrice(%d,%d,%d,%d) = %d, want %d", c.m1, c.e1, c.m2, c.e2, got, c.want)
		}
	}
}

func TestQuoteAtoms(t *testing.T) {
	cases := []struct {
		base     uint64
		mantissa uint32
		exp      int8
		want     uint64
	}{
		{1_000_000_000, 1, 0, 1_000_000_000},
		{1_000_000_000, 1500, -3, 1_500_000_000},
		{10, 3, 2, 3_000},
		{7, 1, -1, 0},
	}
	for _, c := range cases {
		if got := QuoteAtoms(c.base, c.mantissa, c.exp); got != c.want {
			t.Errorf("QuoteAtoms(%d,%d,%d) = %d, want %d", c.base, c.mantissa, c.exp, got, c.want)
		}
	}
}
