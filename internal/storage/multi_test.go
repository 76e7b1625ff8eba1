package storage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/storage"
	"github.com/resonance-tools/combatmeter/internal/storage/storagetest"
)

var _ storage.Backend = (*storage.Multi)(nil)
var _ storage.Backend = (*storagetest.Recorder)(nil)

func TestMulti_FansOut(t *testing.T) {
	a, b := storagetest.NewRecorder(), storagetest.NewRecorder()
	m := storage.NewMulti(a, nil, b)
	require.Len(t, m.Backends(), 2)

	require.NoError(t, m.Init())
	require.NoError(t, m.AddDamage(1, 1714, 500, true, false, 450))
	require.NoError(t, m.AddHealing(1, 100, false, true))
	require.NoError(t, m.AddTakenDamage(2, 30))
	require.NoError(t, m.SetName(1, "Alice"))
	require.NoError(t, m.SetProfession(1, "Iaido"))
	require.NoError(t, m.SetFightPoint(1, 9000))
	require.NoError(t, m.Close())

	assert.Equal(t, a.Calls(), b.Calls())
	assert.Len(t, a.Calls(), 8)
	assert.Equal(t, []any{uint64(1), int32(1714), int64(500), true, false, int64(450)}, a.CallsTo("AddDamage")[0].Args)
}

func TestMulti_JoinsErrors(t *testing.T) {
	bad := storagetest.NewRecorder()
	bad.Err = errors.New("disk full")
	good := storagetest.NewRecorder()

	m := storage.NewMulti(bad, good)
	err := m.AddTakenDamage(3, 10)

	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, good.CallsTo("AddTakenDamage"), 1, "later backends still see the call")
}

func TestMulti_GetUser(t *testing.T) {
	a, b := storagetest.NewRecorder(), storagetest.NewRecorder()
	require.NoError(t, b.SetName(7, "Bob"))

	m := storage.NewMulti(a, b)

	u, ok := m.GetUser(7)
	require.True(t, ok)
	assert.Equal(t, "Bob", u.Name)

	_, ok = m.GetUser(8)
	assert.False(t, ok)
	assert.Nil(t, m.Snapshot())
}
