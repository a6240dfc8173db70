package progress

// Hearts bounds. Hearts measure completion quality: 5 is a flawless run.
const (
	MinHearts = 0
	MaxHearts = 5
)

// DefaultBaseXP is the base reward for a first completion.
const DefaultBaseXP = 10

// BestHearts maps lessonID to the best completion quality ever recorded.
// It is written only on a first pass or an improvement.
type BestHearts map[string]int

// Clone returns an independent copy of the map.
func (m BestHearts) Clone() BestHearts {
	out := make(BestHearts, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// XPOutcome is the result of an XP computation.
type XPOutcome struct {
	// XPEarned is the reward for this completion.
	XPEarned int

	// IsNewRecord indicates the completion beat (or established) the best.
	IsNewRecord bool

	// UpdatedBest is the best-hearts map after this completion. It is a new
	// map when the record improved; otherwise it is the input map unchanged.
	UpdatedBest BestHearts
}

// CalculateXP computes the reward for a lesson completion. Pure: the input
// map is never mutated.
//
// First completion: baseXP + hearts*10, always a new record.
// Replay: max(0, hearts-priorBest)*10; a record only when hearts improve,
// and only then is a fresh best map returned.
//
// Hearts outside [0,5] are clamped silently so the function stays total;
// the command boundary rejects out-of-range input before it gets here.
func CalculateXP(lessonID string, hearts int, isFirstCompletion bool, priorBest BestHearts, baseXP int) XPOutcome {
	if hearts < MinHearts {
		hearts = MinHearts
	}
	if hearts > MaxHearts {
		hearts = MaxHearts
	}
	if baseXP < 0 {
		baseXP = DefaultBaseXP
	}

	if isFirstCompletion {
		updated := priorBest.Clone()
		updated[lessonID] = hearts
		return XPOutcome{
			XPEarned:    baseXP + hearts*10,
			IsNewRecord: true,
			UpdatedBest: updated,
		}
	}

	prior := priorBest[lessonID]
	gain := hearts - prior
	if gain < 0 {
		gain = 0
	}

	outcome := XPOutcome{
		XPEarned:    gain * 10,
		IsNewRecord: hearts > prior,
		UpdatedBest: priorBest,
	}
	if outcome.IsNewRecord {
		updated := priorBest.Clone()
		updated[lessonID] = hearts
		outcome.UpdatedBest = updated
	}
	return outcome
}
