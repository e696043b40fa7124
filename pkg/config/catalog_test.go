package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	cat := BuiltinCatalog()

	t.Run("covers all four state types", func(t *testing.T) {
		for _, name := range []string{"goal", "task", "decision", "fact"} {
			group, ok := cat.StateTypes[name]
			require.True(t, ok, "missing state type %q", name)
			assert.NotEmpty(t, group.Create, "%s has no create patterns", name)
		}
	})

	t.Run("goal lifecycle patterns", func(t *testing.T) {
		goal := cat.StateTypes["goal"]
		assert.Contains(t, goal.Create, "let's go to")
		assert.Contains(t, goal.Complete, "we arrived at")
		assert.NotEmpty(t, goal.Invalidate)
	})

	t.Run("patterns are lowercase", func(t *testing.T) {
		for name, group := range cat.StateTypes {
			for _, patterns := range [][]string{group.Create, group.Complete, group.Invalidate} {
				for _, p := range patterns {
					assert.Equal(t, strings.ToLower(p), p, "pattern %q of %s not lowercase", p, name)
				}
			}
		}
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Run("empty path returns builtin", func(t *testing.T) {
		cat, err := LoadCatalog("")
		require.NoError(t, err)
		assert.Contains(t, cat.StateTypes["goal"].Create, "let's go to")
	})

	t.Run("loads and normalizes yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "states.yaml")
		content := `state_types:
  goal:
    create:
      - "Head For"
      - "  set course to "
    complete:
      - "docked at"
  quest:
    create:
      - "a quest begins:"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cat, err := LoadCatalog(path)
		require.NoError(t, err)

		goal := cat.StateTypes["goal"]
		assert.Equal(t, []string{"head for", "set course to"}, goal.Create)
		assert.Equal(t, []string{"docked at"}, goal.Complete)
		assert.Empty(t, goal.Invalidate)
		assert.Contains(t, cat.StateTypes, "quest")
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("state_types: [not, a, map"), 0o644))

		_, err := LoadCatalog(path)
		require.Error(t, err)
	})

	t.Run("empty catalog fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("state_types: {}\n"), 0o644))

		_, err := LoadCatalog(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no state types")
	})
}
