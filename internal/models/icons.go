package models

// IconKey is the symbolic icon identifier carried on reasoning frames.
type IconKey string

const (
	IconTextSearch IconKey = "text_search"
	IconSearch     IconKey = "search"
	IconNotebook   IconKey = "notebook"
	IconPencil     IconKey = "pencil"
	IconBrain      IconKey = "brain"
	IconLineChart  IconKey = "line_chart"
	IconBarChart   IconKey = "bar_chart"
	IconBlocks     IconKey = "blocks"
	IconCheck      IconKey = "check"
)

// DefaultIcon is used when a frame carries an unknown or empty icon key.
const DefaultIcon = IconNotebook

var iconGlyphs = map[IconKey]string{
	IconTextSearch: "🔎",
	IconSearch:     "🔍",
	IconNotebook:   "📓",
	IconPencil:     "✏️",
	IconBrain:      "🧠",
	IconLineChart:  "📈",
	IconBarChart:   "📊",
	IconBlocks:     "🧱",
	IconCheck:      "✔",
}

// IconForKey maps a raw icon key from the wire to a known IconKey, falling
// back to DefaultIcon on a miss.
func IconForKey(key string) IconKey {
	k := IconKey(key)
	if _, ok := iconGlyphs[k]; ok {
		return k
	}
	return DefaultIcon
}

// Glyph returns the terminal glyph for the key. Unknown keys use the default
// icon's glyph so a step always renders with something.
func (k IconKey) Glyph() string {
	if g, ok := iconGlyphs[k]; ok {
		return g
	}
	return iconGlyphs[DefaultIcon]
}

// ReasoningStep is one entry in the side-channel trace shown while the
// backend's agents work on a turn.
type ReasoningStep struct {
	Text        string
	SearchQuery string
	Icon        IconKey
}
