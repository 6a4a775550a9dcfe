package transcript

import (
	"sync"

	"github.com/diogo/agentdeck/internal/models"
)

// Trace is the side-channel list of reasoning steps for the submission
// currently in flight. It is cleared synchronously before each new
// submission's network call so steps from a prior turn never flash during
// the new turn's early frames.
type Trace struct {
	mu    sync.RWMutex
	steps []models.ReasoningStep
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Reset discards all steps.
func (tr *Trace) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = nil
}

// Append adds a step at the end.
func (tr *Trace) Append(step models.ReasoningStep) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = append(tr.steps, step)
}

// Steps returns a copy of the current steps.
func (tr *Trace) Steps() []models.ReasoningStep {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]models.ReasoningStep, len(tr.steps))
	copy(out, tr.steps)
	return out
}

// Len returns the number of steps.
func (tr *Trace) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.steps)
}
