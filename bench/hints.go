package bench

import "github.com/dropset/cubench/runtime"

// HintResolver turns committed market state into block-index hints the
// way an optimized client would: it tracks where the trader's seat and
// orders live and passes those indexes with each instruction. Disabled,
// it returns NoHint everywhere and the program falls back to charged
// scans.
type HintResolver struct {
	enabled bool
}

func NewHintResolver(enabled bool) *HintResolver {
	return &HintResolver{enabled: enabled}
}

func (h *HintResolver) Enabled() bool { return h.enabled }

// SeatIndex resolves the trader's seat block index from committed
// state, or NoHint when resolution is disabled or the seat is absent.
func (h *HintResolver) SeatIndex(f *Fixture) uint32 {
	if !h.enabled {
		return NoHint
	}
	return h.seatIndexOf(f, f.Trader)
}

func (h *HintResolver) seatIndexOf(f *Fixture, trader runtime.Pubkey) uint32 {
	book, err := f.Book()
	if err != nil {
		return NoHint
	}
	idx, _, ok := book.FindSeat(trader)
	if !ok {
		return NoHint
	}
	return uint32(idx)
}

// OrderIndex resolves the block index of the resting order with the
// given sequence number, or NoHint.
func (h *HintResolver) OrderIndex(f *Fixture, seq uint64) uint32 {
	if !h.enabled {
		return NoHint
	}
	book, err := f.Book()
	if err != nil {
		return NoHint
	}
	idx, _, ok := book.FindOrderBySeq(seq)
	if !ok {
		return NoHint
	}
	return uint32(idx)
}
