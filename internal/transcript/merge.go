package transcript

import (
	"github.com/diogo/agentdeck/internal/models"
)

// Merge folds incoming UI component envelopes into an existing ordered list.
//
// For each incoming ui_event envelope whose target matches an existing one,
// the existing entry is replaced in place when the descriptors differ and
// left alone when they are structurally identical. Envelopes with a new
// target, or with a kind other than ui_event, are appended in incoming
// order.
//
// The backend resends unchanged components across frames, so Merge must be
// idempotent: when no entry changed, the existing slice is returned
// unmodified so callers can skip re-notification.
func Merge(existing []models.UIEvent, incoming []models.UIEvent) []models.UIEvent {
	if len(incoming) == 0 {
		return existing
	}

	result := existing
	changed := false

	for _, e := range incoming {
		idx := -1
		if e.Kind == models.KindUIEvent {
			idx = findTarget(result, e.Target)
		}

		if idx < 0 {
			if !changed {
				result = cloneEvents(existing)
				changed = true
			}
			result = append(result, e)
			continue
		}

		if result[idx].Component.Equal(e.Component) {
			continue
		}

		if !changed {
			result = cloneEvents(existing)
			changed = true
		}
		result[idx] = e
	}

	if !changed {
		return existing
	}
	return result
}

func findTarget(events []models.UIEvent, target string) int {
	for i, ev := range events {
		if ev.Kind == models.KindUIEvent && ev.Target == target {
			return i
		}
	}
	return -1
}

func cloneEvents(events []models.UIEvent) []models.UIEvent {
	out := make([]models.UIEvent, len(events))
	copy(out, events)
	return out
}
