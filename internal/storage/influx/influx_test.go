package influxstorage

import (
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/storage"
)

var _ storage.Backend = (*Backend)(nil)

type lineWriter struct {
	lines  []string
	closed bool
}

func (w *lineWriter) WritePoint(p *write.Point) error {
	w.lines = append(w.lines, strings.TrimSuffix(write.PointToLineProtocol(p, time.Second), "\n"))
	return nil
}

func (w *lineWriter) Close() error {
	w.closed = true
	return nil
}

func TestBackend_Points(t *testing.T) {
	w := &lineWriter{}
	b := New(w)
	b.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, b.Init())
	require.NoError(t, b.AddDamage(1001, 1714, 500, true, false, 450))
	require.NoError(t, b.AddHealing(1001, 80, false, true))
	require.NoError(t, b.AddTakenDamage(1001, 25))
	require.NoError(t, b.SetName(1001, "Alice"))
	require.NoError(t, b.SetFightPoint(1001, 12345))
	require.NoError(t, b.Close())

	assert.Equal(t, []string{
		`combat,kind=damage,skill=1714,uid=1001 amount=500i,crit=true,hp_lessen=450i,lucky=false 1700000000`,
		`combat,kind=healing,uid=1001 amount=80i,crit=false,lucky=true 1700000000`,
		`combat,kind=taken_damage,uid=1001 amount=25i 1700000000`,
		`player,uid=1001 name="Alice" 1700000000`,
		`player,uid=1001 fight_point=12345i 1700000000`,
	}, w.lines)
	assert.True(t, w.closed)

	_, ok := b.GetUser(1001)
	assert.False(t, ok)
}
