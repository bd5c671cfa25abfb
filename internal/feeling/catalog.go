package feeling

// DefaultColor is used for free-form feeling types that are not in the catalog.
const DefaultColor = "#ccc"

// Catalog lists the feelings offered on the check-in screen.
var Catalog = []Type{
	{Label: "Happy", Emoji: "😊", Color: "#fbbf24"},
	{Label: "Sad", Emoji: "😢", Color: "#60a5fa"},
	{Label: "Moody", Emoji: "🌀", Color: "#a78bfa"},
	{Label: "Excited", Emoji: "🤩", Color: "#f472b6"},
	{Label: "Tired", Emoji: "😴", Color: "#9ca3af"},
	{Label: "Bored", Emoji: "😐", Color: "#94a3b8"},
	{Label: "Anxious", Emoji: "😰", Color: "#fb923c"},
	{Label: "Grateful", Emoji: "🙏", Color: "#34d399"},
	{Label: "Calm", Emoji: "😌", Color: "#2dd4bf"},
	{Label: "Confused", Emoji: "😵‍💫", Color: "#c084fc"},
	{Label: "Loved", Emoji: "🥰", Color: "#f87171"},
	{Label: "Angry", Emoji: "😡", Color: "#ef4444"},
	{Label: "Proud", Emoji: "🦁", Color: "#facc15"},
	{Label: "Lonely", Emoji: "🌑", Color: "#475569"},
}

// Lookup returns the catalog entry for label.
func Lookup(label string) (Type, bool) {
	for _, t := range Catalog {
		if t.Label == label {
			return t, true
		}
	}
	return Type{}, false
}

// ColorFor returns the display colour for label, or DefaultColor when the
// label is free-form.
func ColorFor(label string) string {
	if t, ok := Lookup(label); ok {
		return t.Color
	}
	return DefaultColor
}
