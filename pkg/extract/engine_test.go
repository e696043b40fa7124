package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
)

func newBuiltinEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)
	return NewEngine(cat)
}

func TestStatesExtraction(t *testing.T) {
	engine := newBuiltinEngine(t)

	t.Run("goal creation", func(t *testing.T) {
		got := engine.States("Let's go to the Hydro-Plant.")
		require.Len(t, got, 1)
		assert.Equal(t, models.StateGoal, got[0].Type)
		assert.Equal(t, models.StateActive, got[0].Status)
		assert.Equal(t, "hydro-plant", got[0].Description)
	})

	t.Run("goal completion", func(t *testing.T) {
		got := engine.States("We arrived at the Hydro-Plant.")
		require.Len(t, got, 1)
		assert.Equal(t, models.StateGoal, got[0].Type)
		assert.Equal(t, models.StateCompleted, got[0].Status)
		assert.Equal(t, "hydro-plant", got[0].Description)
	})

	t.Run("decision with connector stripped", func(t *testing.T) {
		got := engine.States("We decided to use streaming replication here.")
		require.Len(t, got, 1)
		assert.Equal(t, models.StateDecision, got[0].Type)
		assert.Equal(t, models.StateActive, got[0].Status)
		assert.Equal(t, "use streaming replication here", got[0].Description)
	})

	t.Run("fact creation", func(t *testing.T) {
		got := engine.States("It turns out the east tunnel is flooded, so plan around it.")
		require.Len(t, got, 1)
		assert.Equal(t, models.StateFact, got[0].Type)
		assert.Equal(t, "east tunnel is flooded", got[0].Description)
	})

	t.Run("invalidation", func(t *testing.T) {
		got := engine.States("We're no longer going to the fortress.")
		require.Len(t, got, 1)
		assert.Equal(t, models.StateGoal, got[0].Type)
		assert.Equal(t, models.StateInvalid, got[0].Status)
		assert.Equal(t, "fortress", got[0].Description)
	})

	t.Run("multiple sentences multiple types", func(t *testing.T) {
		text := "We need to repair the pump. We agreed to split into two teams."
		got := engine.States(text)
		require.Len(t, got, 2)
		assert.Equal(t, models.StateTask, got[0].Type)
		assert.Equal(t, "repair the pump", got[0].Description)
		assert.Equal(t, models.StateDecision, got[1].Type)
		assert.Equal(t, "split into two teams", got[1].Description)
	})

	t.Run("descriptions deduplicate across text", func(t *testing.T) {
		text := "We need to repair the pump. We need to repair the pump."
		got := engine.States(text)
		assert.Len(t, got, 1)
	})

	t.Run("too short captures are dropped", func(t *testing.T) {
		got := engine.States("We need to go.")
		assert.Empty(t, got)
	})

	t.Run("clause boundary cuts description", func(t *testing.T) {
		got := engine.States("Our goal is the northern ridge, then the summit.")
		require.Len(t, got, 1)
		assert.Equal(t, "northern ridge", got[0].Description)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, engine.States(""))
	})
}

func TestStatesCustomCatalog(t *testing.T) {
	cat := &config.Catalog{
		StateTypes: map[string]config.PatternGroup{
			"goal": {
				Create: []string{"set course to"},
			},
			"quest": {
				Create:   []string{"a quest begins:"},
				Complete: []string{"the quest ends:"},
			},
		},
	}
	engine := NewEngine(cat)

	t.Run("builtin type precedes extension type", func(t *testing.T) {
		text := "A quest begins: the lost archive must be found and set course to the archive city now"
		got := engine.States(text)
		require.Len(t, got, 2)
		assert.Equal(t, models.StateGoal, got[0].Type)
		assert.Equal(t, models.StateType("quest"), got[1].Type)
	})

	t.Run("completion outranks creation for the same description", func(t *testing.T) {
		got := engine.States("The quest ends: the crystal caves, a quest begins: the crystal caves")
		require.Len(t, got, 1)
		assert.Equal(t, models.StateCompleted, got[0].Status)
		assert.Equal(t, "crystal caves", got[0].Description)
	})
}
