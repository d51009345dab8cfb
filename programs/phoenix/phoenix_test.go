package phoenix_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/bench"
	"github.com/dropset/cubench/programs/phoenix"
	"github.com/dropset/cubench/runtime"
	"github.com/dropset/cubench/testutil"
)

func newFixture(t *testing.T) *bench.Fixture {
	t.Helper()
	loader, err := runtime.NewImageLoader(testutil.ImagesDir(t, "phoenix"))
	if err != nil {
		testutil.FatalErr(t, err)
	}
	f, err := bench.NewFixture(loader, bench.NewPhoenixAdapter(), bench.VariantFresh)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	return f
}

func asks(n int) []bench.Order {
	orders := make([]bench.Order, n)
	for i := range orders {
		orders[i] = bench.Order{BaseAtoms: bench.OneBase, PriceMantissa: uint32(i + 1)}
	}
	return orders
}

func TestMarketIsFullSizeAtCreation(t *testing.T) {
	f := newFixture(t)
	book, err := f.Book()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if book.Capacity() != phoenix.BookSlots {
		t.Errorf("capacity: got %d, want %d", book.Capacity(), phoenix.BookSlots)
	}
}

func TestPlaceAndCancelAll(t *testing.T) {
	const n = 5
	f := newFixture(t)
	seatBefore, _, err := f.SeatBalances()
	if err != nil {
		testutil.FatalErr(t, err)
	}

	if err := f.Commit(f.Adapter.PlaceOrders(f, asks(n))); err != nil {
		testutil.FatalErr(t, err)
	}
	resting, err := f.RestingOrders()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if len(resting) != n {
		t.Fatalf("resting: got %d, want %d", len(resting), n)
	}
	locked, _, err := f.SeatBalances()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if locked != seatBefore-n*bench.OneBase {
		t.Errorf("seat base while resting: got %d, want %d", locked, seatBefore-n*bench.OneBase)
	}

	if _, err := f.Measure(f.Adapter.CancelOrders(f, nil)); err != nil {
		testutil.FatalErr(t, err)
	}
	resting, err = f.RestingOrders()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if len(resting) != 0 {
		t.Errorf("resting after cancel: got %d, want 0", len(resting))
	}
	restored, _, err := f.SeatBalances()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if restored != seatBefore {
		t.Errorf("seat base after cancel: got %d, want %d", restored, seatBefore)
	}
}

func TestSwapConsumesAsks(t *testing.T) {
	const n = 4
	f := newFixture(t)
	if err := f.Commit(f.Adapter.PlaceOrders(f, asks(n))); err != nil {
		testutil.FatalErr(t, err)
	}
	if _, err := f.Measure(f.Adapter.Swap(f, n*bench.OneBase)); err != nil {
		testutil.FatalErr(t, err)
	}
	resting, err := f.RestingOrders()
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if len(resting) != 0 {
		t.Errorf("resting after swap: got %d, want 0", len(resting))
	}
}

func TestBatchSharesFixedOverhead(t *testing.T) {
	single := newFixture(t)
	batch := newFixture(t)

	m1, err := single.Simulate(single.Adapter.PlaceOrders(single, asks(1)))
	if err != nil {
		testutil.FatalErr(t, err)
	}
	m10, err := batch.Simulate(batch.Adapter.PlaceOrders(batch, asks(10)))
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if perItem := m10.TotalCU / 10; perItem >= m1.TotalCU {
		t.Errorf("per-item at n=10 is %d CU, single is %d CU", perItem, m1.TotalCU)
	}
}

func TestDoubleRequestSeat(t *testing.T) {
	f := newFixture(t)
	err := f.Commit(f.Adapter.ClaimSeat(f))
	if errors.Cause(err) != runtime.ErrAccountInUse {
		t.Errorf("got %v, want ErrAccountInUse", err)
	}
}
