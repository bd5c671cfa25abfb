package quote

// defaultKey selects the fallback candidates for types without their own list.
const defaultKey = "default"

// table maps a feeling type to its candidate quotes.
var table = map[string][]string{
	"Happy":    {"Keep shining, the world needs your light!", "Happiness looks absolutely gorgeous on you.", "Soak up this joy and spread it around!"},
	"Sad":      {"This too shall pass, machi.", "It's okay to not be okay sometimes.", "Tough times never last, but tough people do.", "Don't worry da, tomorrow is a new day."},
	"Moody":    {"Ride the wave, it will settle soon.", "Feelings are just visitors, let them come and go.", "Be gentle with yourself today."},
	"Excited":  {"Channel that energy into something amazing!", "You are unstoppable today!", "Ride this momentum!"},
	"Tired":    {"Rest is productive too.", "Recharge your batteries, you deserve it.", "Listen to your body, buddy."},
	"Bored":    {"Creativity often starts with boredom.", "Time to explore a new hobby?", "Daydreaming is good for the soul."},
	"Anxious":  {"One step at a time.", "Breathe in calm, breathe out worry.", "You've handled everything life has thrown at you so far.", "Relax da, everything will be fine."},
	"Grateful": {"Gratitude turns what we have into enough.", "A grateful heart is a magnet for miracles.", "Count your blessings, name them one by one."},
	"Calm":     {"Peace is power.", "Enjoy this moment of stillness.", "Serenity is not freedom from the storm, but peace within it."},
	"Confused": {"Clarity comes with time.", "It's okay not to have all the answers right now.", "Trust the process."},
	"Loved":    {"You are cherished more than you know.", "Love is the best medicine.", "Spread that love!"},
	"Angry":    {"Take a deep breath.", "Don't let anger steal your peace.", "Walk away and cool down, it's worth it."},
	"Proud":    {"You earned this!", "Celebrate your wins, big and small.", "Stand tall, you did good."},
	"Lonely":   {"You are never truly alone.", "Reach out, someone cares.", "Be your own best friend today."},
	defaultKey: {"Every day is a fresh start.", "You are doing great.", "Believe in yourself."},
}

// Candidates returns a copy of the quotes that may be picked for typ,
// falling back to the default list.
func Candidates(typ string) []string {
	list, ok := table[typ]
	if !ok {
		list = table[defaultKey]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
