// Package admission decides which normalized records get persisted.
package admission

import "github.com/DeafMist/outbreak-radar/backend/internal/models"

// DefaultMinConfidence is the confidence under which a record needs corroboration.
const DefaultMinConfidence = 0.3

// Gate is the last consistency check before storage.
type Gate struct {
	MinConfidence float64
}

// NewGate returns a gate; a non-positive threshold selects the default.
func NewGate(minConfidence float64) Gate {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return Gate{MinConfidence: minConfidence}
}

// Accept rejects a record only when nothing at all corroborates it:
// low confidence, no counts and no known severity.
func (g Gate) Accept(rec models.OutbreakRecord) bool {
	lowConfidence := rec.ConfidenceScore < g.MinConfidence
	return !(lowConfidence && !rec.HasNumbers() && rec.SeverityLevel == models.SeverityUnknown)
}
