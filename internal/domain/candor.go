package domain

type CandorSignalType string

const (
	SignalRepetition        CandorSignalType = "repetition"
	SignalAvoidance         CandorSignalType = "avoidance"
	SignalValidationSeeking CandorSignalType = "validation_seeking"
	SignalValueMisalignment CandorSignalType = "value_misalignment"
)

// CandorSignal is produced and consumed within one request.
type CandorSignal struct {
	Type       CandorSignalType `json:"type"`
	Confidence float64          `json:"confidence"`
}

// CandorDecision is immutable once computed and attached to the response
// metadata. Activate is true only when at least two signals exceed their
// individual thresholds and the mean confidence of all signals exceeds the
// aggregate threshold.
type CandorDecision struct {
	Activate   bool           `json:"activate"`
	Confidence float64        `json:"confidence"`
	Signals    []CandorSignal `json:"signals,omitempty"`
}
