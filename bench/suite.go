package bench

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/runtime"
)

// BatchSizes are the batch widths measured for amortizable operations.
var BatchSizes = []int{1, 10, 50}

// Kind names a measured operation.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdraw    Kind = "withdraw"
	KindPlace       Kind = "place"
	KindBatchPlace  Kind = "batch-place"
	KindBatchCancel Kind = "batch-cancel"
	KindSwap        Kind = "swap"
)

// Outcome is one benchmark row: a program, operation, batch size and
// variant, with the raw compute figure and its per-item amortization,
// or the error that prevented measurement.
type Outcome struct {
	Program   string
	Kind      Kind
	BatchSize int
	Variant   Variant
	TotalCU   uint64
	PerItemCU uint64
	Err       error
}

// Failed reports whether the case produced no measurement.
func (o Outcome) Failed() bool { return o.Err != nil }

// Engine runs the full scenario matrix over a set of adapters. Every
// case gets a freshly built fixture, so no measurement sees state left
// behind by another, and the matrix is enumerated in a fixed order.
type Engine struct {
	Loader   *runtime.ImageLoader
	Adapters []Adapter
	Log      *slog.Logger
}

// Run measures every case and returns the outcomes in enumeration
// order. Failures become outcome rows rather than aborting the run.
func (e *Engine) Run() []Outcome {
	log := e.Log
	if log == nil {
		log = slog.Default()
	}
	// Rows group by instruction kind, then ascending batch size, then
	// variant.
	var out []Outcome
	for _, a := range e.Adapters {
		for _, kind := range []Kind{KindDeposit, KindWithdraw, KindPlace} {
			for _, v := range a.Variants() {
				out = append(out, e.runCase(log, a, v, kind, 1))
			}
		}
		for _, kind := range []Kind{KindBatchPlace, KindBatchCancel, KindSwap} {
			for _, n := range BatchSizes {
				for _, v := range a.Variants() {
					out = append(out, e.runCase(log, a, v, kind, n))
				}
			}
		}
	}
	return out
}

func (e *Engine) runCase(log *slog.Logger, a Adapter, v Variant, kind Kind, n int) Outcome {
	oc := Outcome{Program: a.Name(), Kind: kind, BatchSize: n, Variant: v}
	m, err := e.measure(a, v, kind, n)
	if err != nil {
		oc.Err = err
		log.Error("case failed",
			"program", oc.Program, "kind", string(kind), "n", n, "variant", string(v), "err", err)
		return oc
	}
	oc.TotalCU = m.TotalCU
	oc.PerItemCU = m.TotalCU / uint64(n)
	log.Info("case measured",
		"program", oc.Program, "kind", string(kind), "n", n, "variant", string(v),
		"total_cu", oc.TotalCU, "per_item_cu", oc.PerItemCU)
	return oc
}

func (e *Engine) measure(a Adapter, v Variant, kind Kind, n int) (Measurement, error) {
	f, err := NewFixture(e.Loader, a, v)
	if err != nil {
		return Measurement{}, err
	}
	switch kind {
	case KindDeposit:
		return f.Measure(a.Deposit(f, OneBase))
	case KindWithdraw:
		return f.Measure(a.Withdraw(f, OneBase))
	case KindPlace:
		return f.Measure(a.PlaceOrders(f, askLadder(1)))
	case KindBatchPlace:
		return f.Measure(a.PlaceOrders(f, askLadder(n)))
	case KindBatchCancel:
		if err := f.Commit(a.PlaceOrders(f, askLadder(n))); err != nil {
			return Measurement{}, err
		}
		resting, err := f.RestingOrders()
		if err != nil {
			return Measurement{}, &SetupError{Err: err}
		}
		seqs := make([]uint64, len(resting))
		for i, r := range resting {
			seqs[i] = r.Order.Seq
		}
		return f.Measure(a.CancelOrders(f, seqs))
	case KindSwap:
		if err := f.Commit(a.PlaceOrders(f, askLadder(n))); err != nil {
			return Measurement{}, err
		}
		return f.Measure(a.Swap(f, uint64(n)*OneBase))
	}
	return Measurement{}, &SetupError{Err: errors.Errorf("unknown case kind %q", kind)}
}

// askLadder builds n one-base asks at strictly ascending prices.
func askLadder(n int) []Order {
	orders := make([]Order, n)
	for i := range orders {
		orders[i] = Order{
			BaseAtoms:     OneBase,
			PriceMantissa: uint32(i + 1),
			PriceExponent: 0,
		}
	}
	return orders
}
