package presets

import "github.com/sofytk/lazy-daisy/internal/outcome"

type Preset struct {
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Texts []string `json:"texts"`
}

// Catalog is the built-in set of named outcome pools offered in the shop.
var Catalog = []Preset{
	{Key: "classic", Name: "Classic daisy", Texts: []string{"loves me", "loves me not"}},
	{Key: "fortune", Name: "Fortune teller", Texts: []string{"yes", "no", "maybe"}},
	{Key: "luck", Name: "Lucky day", Texts: []string{"lucky", "unlucky"}},
	{Key: "mood", Name: "Mood check", Texts: []string{"great day", "rough day", "so-so"}},
}

func ByKey(key string) (Preset, bool) {
	for _, p := range Catalog {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}

// ResolvePool picks the active outcome pool once from server state: a known
// preset key wins, then the user's custom texts, then the built-in pair.
func ResolvePool(activeKey string, customTexts []string) []string {
	if p, ok := ByKey(activeKey); ok {
		return p.Texts
	}
	return outcome.PoolOrDefault(customTexts)
}
