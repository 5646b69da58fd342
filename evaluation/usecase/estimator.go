package usecase

import "time"

// SimulationCeiling is the highest percentage an estimate may show. The last
// stretch belongs to the backend's own completion signal.
const SimulationCeiling = 95

//Estimator guesses progress of a job that reports none. Its output is never
//ground truth; it exists so a long wait shows forward motion.
type Estimator interface {
	Estimate(elapsed time.Duration, fileCount int) int
}

//TimeBudgetEstimator grants each answer sheet a fixed time allowance and
//moves linearly toward the ceiling over the summed budget
type TimeBudgetEstimator struct {
	PerFile time.Duration
	// Floor is the smallest total budget, used for zero or tiny file counts.
	Floor time.Duration
}

// DefaultEstimator allows 90 seconds per file and never less than one second.
func DefaultEstimator() TimeBudgetEstimator {
	return TimeBudgetEstimator{
		PerFile: 90 * time.Second,
		Floor:   time.Second,
	}
}

// Budget is the time after which the estimate sits at the ceiling.
func (e TimeBudgetEstimator) Budget(fileCount int) time.Duration {
	budget := time.Duration(fileCount) * e.PerFile
	if budget < e.Floor {
		budget = e.Floor
	}
	if budget <= 0 {
		budget = time.Nanosecond
	}
	return budget
}

func (e TimeBudgetEstimator) Estimate(elapsed time.Duration, fileCount int) int {
	if elapsed <= 0 {
		return 0
	}
	pct := int(float64(elapsed) / float64(e.Budget(fileCount)) * SimulationCeiling)
	if pct > SimulationCeiling {
		return SimulationCeiling
	}
	return pct
}

// StageFor is display text for a percentage. It carries no backend signal.
func StageFor(percent int) string {
	switch {
	case percent >= 100:
		return "Evaluation complete"
	case percent >= SimulationCeiling:
		return "Finalizing results..."
	case percent < 20:
		return "Analyzing mark scheme..."
	case percent < 40:
		return "Processing answer sheets..."
	case percent < 60:
		return "Evaluating answers..."
	case percent < 80:
		return "Calculating scores..."
	default:
		return "Generating feedback..."
	}
}
