package bench

import "github.com/dropset/cubench/runtime"

// Measurement is the metered outcome of one instruction.
type Measurement struct {
	TotalCU uint64
	Logs    []string
}

// Measure runs ix through the simulate-then-commit protocol: the dry
// run yields the compute figure without touching durable state, then
// the same transaction is committed so later measurements in the
// scenario see its effects. The reported number always comes from the
// simulation.
func (f *Fixture) Measure(ix runtime.Instruction) (Measurement, error) {
	tx := runtime.NewTransaction(f.Trader, ix)
	meta, err := f.Bank.Simulate(tx)
	if err != nil {
		return Measurement{}, &SimulationError{Err: err}
	}
	if _, err := f.Bank.Commit(tx); err != nil {
		return Measurement{}, &SetupError{Err: err}
	}
	return Measurement{TotalCU: meta.CUConsumed, Logs: meta.Logs}, nil
}

// Simulate runs ix against a copy of durable state, reporting compute
// without committing anything.
func (f *Fixture) Simulate(ix runtime.Instruction) (Measurement, error) {
	meta, err := f.Bank.Simulate(runtime.NewTransaction(f.Trader, ix))
	if err != nil {
		return Measurement{}, &SimulationError{Err: err}
	}
	return Measurement{TotalCU: meta.CUConsumed, Logs: meta.Logs}, nil
}
