package formula

import "errors"

// CorrectionDirection names which kind of pouring mistake a correction flow
// accepts. Only over-pours are supported today; the policy type keeps the
// door open for a bidirectional mode.
type CorrectionDirection string

const DirectionOverPour CorrectionDirection = "over_pour"

// Correction phases.
const (
	CorrectionIdle              = "idle"
	CorrectionAwaitingSelection = "awaiting_selection"
	CorrectionActive            = "active"
)

var (
	ErrCorrectionNotAwaiting = errors.New("formula: correction is not awaiting an error selection")
	ErrCorrectionNotActive   = errors.New("formula: correction is not active")
	ErrCorrectionUnderPour   = errors.New("formula: actual weight must be at least the expected weight")
	ErrCorrectionBadExpected = errors.New("formula: expected weight must be positive")
	ErrCorrectionSelfMark    = errors.New("formula: the error component cannot be marked already added")
	ErrCorrectionUnknownComp = errors.New("formula: component is not part of the correction")
)

// Correction tracks the over-pour recovery flow for one production run.
// The zero value is idle. Fields are exported so the state can ride in a
// session as JSON.
type Correction struct {
	Phase            string              `json:"phase"`
	Direction        CorrectionDirection `json:"direction"`
	ErrorComponentID uint                `json:"error_component_id"`
	ExpectedWeightG  float64             `json:"expected_weight_g"`
	ActualWeightG    float64             `json:"actual_weight_g"`
	AlreadyAdded     map[uint]bool       `json:"already_added"`
}

// NewCorrection returns an idle correction with the over-pour policy.
func NewCorrection() *Correction {
	return &Correction{Phase: CorrectionIdle, Direction: DirectionOverPour}
}

// Enable moves an idle correction into the awaiting-selection phase. Enabling
// twice is a no-op; enabling an active correction restarts the selection.
func (c *Correction) Enable() {
	if c.Direction == "" {
		c.Direction = DirectionOverPour
	}
	c.Phase = CorrectionAwaitingSelection
	c.ErrorComponentID = 0
	c.ExpectedWeightG = 0
	c.ActualWeightG = 0
	c.AlreadyAdded = nil
}

// Confirm fixes the error component and its weights, activating the
// correction. Every other listed component starts out flagged already added.
// The confirmation is rejected, leaving the state untouched, when the actual
// weight undercuts the expected one.
func (c *Correction) Confirm(componentID uint, expectedG, actualG float64, componentIDs []uint) error {
	if c.Phase != CorrectionAwaitingSelection {
		return ErrCorrectionNotAwaiting
	}
	if expectedG <= 0 {
		return ErrCorrectionBadExpected
	}
	if actualG < expectedG {
		return ErrCorrectionUnderPour
	}

	c.Phase = CorrectionActive
	c.ErrorComponentID = componentID
	c.ExpectedWeightG = expectedG
	c.ActualWeightG = actualG
	c.AlreadyAdded = make(map[uint]bool, len(componentIDs))
	for _, id := range componentIDs {
		if id == componentID {
			continue
		}
		c.AlreadyAdded[id] = true
	}
	return nil
}

// SetAdded flags or unflags one non-error component as already poured.
func (c *Correction) SetAdded(componentID uint, added bool) error {
	if c.Phase != CorrectionActive {
		return ErrCorrectionNotActive
	}
	if componentID == c.ErrorComponentID {
		return ErrCorrectionSelfMark
	}
	if _, ok := c.AlreadyAdded[componentID]; !ok {
		return ErrCorrectionUnknownComp
	}
	c.AlreadyAdded[componentID] = added
	return nil
}

// Reset returns the correction to idle and clears all per-component flags.
func (c *Correction) Reset() {
	c.Phase = CorrectionIdle
	c.ErrorComponentID = 0
	c.ExpectedWeightG = 0
	c.ActualWeightG = 0
	c.AlreadyAdded = nil
}

// Active reports whether an error component has been confirmed.
func (c *Correction) Active() bool {
	return c != nil && c.Phase == CorrectionActive
}

// ErrorRatio is actual over expected weight, 1 when the correction is not
// active. The confirm guard keeps it >= 1.
func (c *Correction) ErrorRatio() float64 {
	if !c.Active() || c.ExpectedWeightG <= 0 {
		return 1
	}
	return c.ActualWeightG / c.ExpectedWeightG
}

// Added reports whether the component was flagged already poured.
func (c *Correction) Added(componentID uint) bool {
	if !c.Active() {
		return false
	}
	return c.AlreadyAdded[componentID]
}
