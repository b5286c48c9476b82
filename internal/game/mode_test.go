package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		gameMode string
		gameType string
		want     Category
		skip     bool
	}{
		{name: "ranked rift", gameMode: "CLASSIC", gameType: "MATCHED_GAME", want: CategorySummonersRift},
		{name: "aram", gameMode: "ARAM", gameType: "MATCHED_GAME", want: CategoryARAM},
		{name: "arena", gameMode: "CHERRY", gameType: "MATCHED_GAME", want: CategoryArena},
		{name: "lowercase mode", gameMode: "urf", gameType: "MATCHED_GAME", want: CategoryRotating},
		{name: "swarm", gameMode: "STRAWBERRY", gameType: "MATCHED_GAME", want: CategorySwarm, skip: true},
		{name: "practice tool", gameMode: "PRACTICETOOL", gameType: "CUSTOM_GAME", want: CategoryCustom, skip: true},
		{name: "custom rift", gameMode: "CLASSIC", gameType: "CUSTOM_GAME", want: CategoryCustom, skip: true},
		{name: "tutorial", gameMode: "TUTORIAL_MODULE_2", gameType: "TUTORIAL_GAME", want: CategoryPractice, skip: true},
		{name: "new mode is ingested", gameMode: "BRAWL", gameType: "MATCHED_GAME", want: CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Classify(tt.gameMode, tt.gameType)
			assert.Equal(t, tt.want, m.Category)
			assert.Equal(t, tt.skip, m.SkipsIngestion())
		})
	}
}
