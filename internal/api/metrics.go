package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/resonance-tools/combatmeter/internal/storage"
)

const namespace = "combatmeter"

var userLabels = []string{"uid", "name", "profession"}

// userCollector turns a store snapshot into per-player metrics at scrape
// time.
type userCollector struct {
	store storage.Snapshotter

	damage      *prometheus.Desc
	healing     *prometheus.Desc
	taken       *prometheus.Desc
	hits        *prometheus.Desc
	realtimeDPS *prometheus.Desc
	totalDPS    *prometheus.Desc
	totalHPS    *prometheus.Desc
	fightPoint  *prometheus.Desc
}

func newUserCollector(store storage.Snapshotter) *userCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "player", name), help, userLabels, nil)
	}
	return &userCollector{
		store:       store,
		damage:      desc("damage_total", "Damage dealt"),
		healing:     desc("healing_total", "Healing done"),
		taken:       desc("taken_damage_total", "Damage taken"),
		hits:        desc("hits_total", "Damaging hits landed"),
		realtimeDPS: desc("dps_realtime", "Damage per second over the last second"),
		totalDPS:    desc("dps", "Damage per second since the first event"),
		totalHPS:    desc("hps", "Healing per second since the first event"),
		fightPoint:  desc("fight_point", "Reported fight point"),
	}
}

func (c *userCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.damage
	ch <- c.healing
	ch <- c.taken
	ch <- c.hits
	ch <- c.realtimeDPS
	ch <- c.totalDPS
	ch <- c.totalHPS
	ch <- c.fightPoint
}

func (c *userCollector) Collect(ch chan<- prometheus.Metric) {
	for _, u := range c.store.Snapshot() {
		labels := []string{strconv.FormatUint(u.UID, 10), u.Name, u.Profession}

		ch <- prometheus.MustNewConstMetric(c.damage, prometheus.CounterValue, float64(u.Damage.Total), labels...)
		ch <- prometheus.MustNewConstMetric(c.healing, prometheus.CounterValue, float64(u.Healing.Total), labels...)
		ch <- prometheus.MustNewConstMetric(c.taken, prometheus.CounterValue, float64(u.TakenDamage), labels...)
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(u.Damage.Count), labels...)
		ch <- prometheus.MustNewConstMetric(c.realtimeDPS, prometheus.GaugeValue, u.RealtimeDPS, labels...)
		ch <- prometheus.MustNewConstMetric(c.totalDPS, prometheus.GaugeValue, u.TotalDPS, labels...)
		ch <- prometheus.MustNewConstMetric(c.totalHPS, prometheus.GaugeValue, u.TotalHPS, labels...)
		ch <- prometheus.MustNewConstMetric(c.fightPoint, prometheus.GaugeValue, float64(u.FightPoint), labels...)
	}
}

type engineCollector struct {
	src StatsSource

	buffers *prometheus.Desc
	frames  *prometheus.Desc
	failed  *prometheus.Desc
}

func newEngineCollector(src StatsSource) *engineCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "decoder", name), help, nil, nil)
	}
	return &engineCollector{
		src:     src,
		buffers: desc("buffers_total", "Buffers handed to the decoder"),
		frames:  desc("frames_total", "Frames decoded, nested ones included"),
		failed:  desc("buffers_failed_total", "Buffers abandoned after a decode failure"),
	}
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.buffers
	ch <- c.frames
	ch <- c.failed
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.buffers, prometheus.CounterValue, float64(s.Buffers))
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Frames))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
}
