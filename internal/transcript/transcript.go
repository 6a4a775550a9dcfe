// Package transcript holds the conversation state mutated during a streaming
// turn: the ordered message list and the side-channel reasoning trace.
package transcript

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/diogo/agentdeck/internal/models"
)

// Transcript is an ordered collection of messages keyed by integer id.
// Ascending id always equals ascending position. The version counter bumps
// only on real changes so readers can skip no-op refreshes.
type Transcript struct {
	mu       sync.RWMutex
	messages []models.Message
	version  uint64
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// NextID returns the id a newly appended message should use: one past the
// highest existing id, or 1 for an empty transcript.
func (t *Transcript) NextID() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return 1
	}
	return t.messages[len(t.messages)-1].ID + 1
}

// Append adds a message at the end. The caller is expected to allocate ids
// via NextID so the ordering invariant holds.
func (t *Transcript) Append(msg models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, msg)
	t.version++
}

// ReplaceAll swaps in a full message list, used when loading a historical
// session. Messages are reordered by id if the backend returned them out of
// order.
func (t *Transcript) ReplaceAll(msgs []models.Message) {
	copied := make([]models.Message, len(msgs))
	copy(copied, msgs)
	if !sort.SliceIsSorted(copied, func(i, j int) bool { return copied[i].ID < copied[j].ID }) {
		sort.Slice(copied, func(i, j int) bool { return copied[i].ID < copied[j].ID })
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = copied
	t.version++
}

// AppendContent appends a text delta to the message with the given id.
// Unknown ids are ignored.
func (t *Transcript) AppendContent(id int, delta string) {
	if delta == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.indexLocked(id); i >= 0 {
		t.messages[i].Content += delta
		t.version++
	}
}

// SetChartOption overwrites the message's chart option. Later frames within
// the same cycle may overwrite earlier ones.
func (t *Transcript) SetChartOption(id int, option json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := t.indexLocked(id); i >= 0 {
		t.messages[i].ChartOption = option
		t.version++
	}
}

// MergeComponents merges incoming envelopes into the message's component
// list (see Merge). A merge that changes nothing leaves the version counter
// untouched.
func (t *Transcript) MergeComponents(id int, incoming []models.UIEvent) {
	if len(incoming) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexLocked(id)
	if i < 0 {
		return
	}

	merged := Merge(t.messages[i].Components, incoming)
	if sameSlice(merged, []models.UIEvent(t.messages[i].Components)) {
		return
	}
	t.messages[i].Components = merged
	t.version++
}

// Messages returns a copy of the current message list.
func (t *Transcript) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// ByID returns the message with the given id, if present.
func (t *Transcript) ByID(id int) (models.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i := t.indexLocked(id); i >= 0 {
		return t.messages[i], true
	}
	return models.Message{}, false
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Version returns the change counter. It increments on every mutation that
// actually changed state.
func (t *Transcript) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// indexLocked finds a message by id. Ids are sorted ascending, so a binary
// search suffices. Must be called with the lock held.
func (t *Transcript) indexLocked(id int) int {
	i := sort.Search(len(t.messages), func(i int) bool {
		return t.messages[i].ID >= id
	})
	if i < len(t.messages) && t.messages[i].ID == id {
		return i
	}
	return -1
}

// sameSlice reports whether two slices share the same backing array and
// length, i.e. Merge returned its input unchanged.
func sameSlice(a, b []models.UIEvent) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
