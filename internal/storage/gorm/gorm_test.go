package gormstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/database"
	"github.com/resonance-tools/combatmeter/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) (*Backend, *time.Time) {
	t.Helper()

	db, err := database.GetSqliteDB("")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	b := New(Dependencies{
		DB:  db,
		Now: func() time.Time { return now },
		OnClose: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b, &now
}

func TestInit_NoDatabase(t *testing.T) {
	assert.Error(t, New(Dependencies{}).Init())
}

func TestCombatRows(t *testing.T) {
	b, now := newTestBackend(t)

	require.NoError(t, b.AddDamage(1, 1714, 500, true, false, 450))
	*now = now.Add(2 * time.Second)
	require.NoError(t, b.AddDamage(1, 1714, 300, true, true, 300))
	require.NoError(t, b.AddDamage(1, 9, 200, false, false, 0))
	require.NoError(t, b.AddHealing(1, 80, false, true))
	require.NoError(t, b.AddTakenDamage(1, 25))

	var count int64
	require.NoError(t, b.deps.DB.Model(&CombatEvent{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	u, ok := b.GetUser(1)
	require.True(t, ok)
	assert.Equal(t, int64(1000), u.Damage.Total)
	assert.Equal(t, int64(500), u.Damage.Crit)
	assert.Equal(t, int64(300), u.Damage.CritLucky)
	assert.Equal(t, int64(200), u.Damage.Normal)
	assert.Equal(t, int64(750), u.Damage.HpLessen)
	assert.Equal(t, int64(2), u.Damage.CritCount)
	assert.Equal(t, int64(80), u.Healing.Lucky)
	assert.Equal(t, int64(25), u.TakenDamage)

	require.Len(t, u.Skills, 2)
	assert.Equal(t, int64(800), u.Skills[1714].Total)
	assert.InDelta(t, 500.0, u.TotalDPS, 1e-9)
	assert.InDelta(t, 40.0, u.TotalHPS, 1e-9)
}

func TestPlayerUpsert(t *testing.T) {
	b, _ := newTestBackend(t)

	require.NoError(t, b.SetName(7, "Alice"))
	require.NoError(t, b.SetProfession(7, "Frost Mage"))
	require.NoError(t, b.SetFightPoint(7, 12345))
	require.NoError(t, b.SetName(7, "Alicia"))

	var players []Player
	require.NoError(t, b.deps.DB.Find(&players).Error)
	require.Len(t, players, 1)

	u, ok := b.GetUser(7)
	require.True(t, ok)
	assert.Equal(t, "Alicia", u.Name)
	assert.Equal(t, "Frost Mage", u.Profession)
	assert.Equal(t, int32(12345), u.FightPoint)
	assert.Zero(t, u.Damage.Total)
}

func TestGetUser_Unknown(t *testing.T) {
	b, _ := newTestBackend(t)

	_, ok := b.GetUser(404)
	assert.False(t, ok)

	require.NoError(t, b.AddTakenDamage(405, 1))
	u, ok := b.GetUser(405)
	require.True(t, ok)
	assert.Empty(t, u.Name)
	assert.True(t, u.FirstEventAt.IsZero(), "damage taken does not open the combat span")
}
