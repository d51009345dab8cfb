package bench

import "errors"

// The measurement pipeline has three places a case can break, and the
// caller reacts differently to each: a fixture that cannot be built
// yields no row at all, a failed seed commit invalidates the fixture,
// and a failed simulation is a result in its own right.

// FixtureError means the fixture could not be constructed, most often
// because a program image was missing or unreadable.
type FixtureError struct {
	Err error
}

func (e *FixtureError) Error() string { return "fixture: " + e.Err.Error() }
func (e *FixtureError) Unwrap() error { return e.Err }
func (e *FixtureError) Cause() error  { return e.Err }

// SetupError means a seed transaction failed to commit, leaving the
// fixture in an unusable state.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return "setup: " + e.Err.Error() }
func (e *SetupError) Unwrap() error { return e.Err }
func (e *SetupError) Cause() error  { return e.Err }

// SimulationError means the measured instruction itself failed during
// the dry run.
type SimulationError struct {
	Err error
}

func (e *SimulationError) Error() string { return "simulation: " + e.Err.Error() }
func (e *SimulationError) Unwrap() error { return e.Err }
func (e *SimulationError) Cause() error  { return e.Err }

// IsFixtureError reports whether err is or wraps a FixtureError.
func IsFixtureError(err error) bool {
	var fe *FixtureError
	return errors.As(err, &fe)
}

// IsSetupError reports whether err is or wraps a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// IsSimulationError reports whether err is or wraps a SimulationError.
func IsSimulationError(err error) bool {
	var se *SimulationError
	return errors.As(err, &se)
}
