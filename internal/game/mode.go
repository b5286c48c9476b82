package game

import "strings"

// Category groups upstream game modes by how the tracker treats them.
type Category string

const (
	CategorySummonersRift Category = "summoners_rift"
	CategoryARAM          Category = "aram"
	CategoryArena         Category = "arena"
	CategoryRotating      Category = "rotating"
	CategorySwarm         Category = "swarm"
	CategoryPractice      Category = "practice"
	CategoryCustom        Category = "custom"
	CategoryUnknown       Category = "unknown"
)

// Mode is a classified game mode.
type Mode struct {
	Name     string // upstream gameMode, e.g. "ARAM"
	Display  string
	Category Category
}

var modes = map[string]Mode{
	"CLASSIC":      {Name: "CLASSIC", Display: "Summoner's Rift", Category: CategorySummonersRift},
	"ARAM":         {Name: "ARAM", Display: "ARAM", Category: CategoryARAM},
	"CHERRY":       {Name: "CHERRY", Display: "Arena", Category: CategoryArena},
	"URF":          {Name: "URF", Display: "URF", Category: CategoryRotating},
	"ARURF":        {Name: "ARURF", Display: "ARURF", Category: CategoryRotating},
	"ONEFORALL":    {Name: "ONEFORALL", Display: "One for All", Category: CategoryRotating},
	"NEXUSBLITZ":   {Name: "NEXUSBLITZ", Display: "Nexus Blitz", Category: CategoryRotating},
	"ULTBOOK":      {Name: "ULTBOOK", Display: "Ultimate Spellbook", Category: CategoryRotating},
	"STRAWBERRY":   {Name: "STRAWBERRY", Display: "Swarm", Category: CategorySwarm},
	"PRACTICETOOL": {Name: "PRACTICETOOL", Display: "Practice Tool", Category: CategoryPractice},
	"TUTORIAL":     {Name: "TUTORIAL", Display: "Tutorial", Category: CategoryPractice},
}

// skipIngestion lists categories whose games never produce a match record
// worth storing.
var skipIngestion = map[Category]bool{
	CategorySwarm:    true,
	CategoryPractice: true,
	CategoryCustom:   true,
}

// Classify maps upstream gameMode and gameType to a Mode. Custom lobbies are
// classified as custom whatever map they are played on.
func Classify(gameMode, gameType string) Mode {
	if strings.EqualFold(gameType, "CUSTOM_GAME") {
		return Mode{Name: gameMode, Display: "Custom Game", Category: CategoryCustom}
	}

	name := strings.ToUpper(gameMode)
	if m, ok := modes[name]; ok {
		return m
	}
	if strings.HasPrefix(name, "TUTORIAL") {
		return Mode{Name: gameMode, Display: "Tutorial", Category: CategoryPractice}
	}
	return Mode{Name: gameMode, Display: gameMode, Category: CategoryUnknown}
}

// SkipsIngestion reports whether games in this mode are never ingested.
func (m Mode) SkipsIngestion() bool {
	return skipIngestion[m.Category]
}
