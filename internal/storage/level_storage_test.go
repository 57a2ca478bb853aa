package storage

import (
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tile-brawl/internal/world"
)

const arena = `#####
#P.N#
#.#.#
#####
`

func newLevelStorage(t *testing.T, dir string) *LevelStorage {
	t.Helper()
	ls, err := NewLevelStorage(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ls.Close() })
	return ls
}

func TestLevelStorage_RoundTrip(t *testing.T) {
	ls := newLevelStorage(t, "")
	lvl, err := world.ParseLayout([]byte(arena))
	require.NoError(t, err)

	require.NoError(t, ls.SaveLevel("arena", lvl))

	got, err := ls.LoadLevel("arena")
	require.NoError(t, err)
	assert.Equal(t, lvl.Render(), got.Render())
	assert.Equal(t, lvl.PlayerSpawn, got.PlayerSpawn)
	assert.Equal(t, lvl.NPCs, got.NPCs)

	keys, err := ls.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"arena"}, keys)
}

func TestLevelStorage_GeneratedLevelSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	lvl, err := world.NewLevelGenerator(42).Generate(24, 16, 3)
	require.NoError(t, err)

	ls, err := NewLevelStorage(dir)
	require.NoError(t, err)
	require.NoError(t, ls.SaveLevel("perlin-42", lvl))
	require.NoError(t, ls.Close())

	reopened := newLevelStorage(t, dir)
	got, err := reopened.LoadLevel("perlin-42")
	require.NoError(t, err)
	assert.Equal(t, lvl, got)
}

func TestLevelStorage_NotFound(t *testing.T) {
	ls := newLevelStorage(t, "")
	_, err := ls.LoadLevel("missing")
	assert.ErrorIs(t, err, ErrLevelNotFound)
}

func TestLevelStorage_DetectsCorruption(t *testing.T) {
	ls := newLevelStorage(t, "")
	lvl, err := world.ParseLayout([]byte(arena))
	require.NoError(t, err)
	require.NoError(t, ls.SaveLevel("arena", lvl))

	// Портим один байт сжатых данных прямо в базе
	err = ls.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(levelKeyPrefix + "arena"))
		if err != nil {
			return err
		}
		record, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record[len(record)-1] ^= 0xFF
		return txn.Set([]byte(levelKeyPrefix+"arena"), record)
	})
	require.NoError(t, err)

	_, err = ls.LoadLevel("arena")
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestLevelStorage_Closed(t *testing.T) {
	ls, err := NewLevelStorage("")
	require.NoError(t, err)
	require.NoError(t, ls.Close())
	require.NoError(t, ls.Close(), "повторное закрытие безопасно")

	_, err = ls.LoadLevel("arena")
	assert.ErrorIs(t, err, ErrStorageClosed)
	assert.ErrorIs(t, ls.SaveLevel("arena", &world.Level{}), ErrStorageClosed)
}
