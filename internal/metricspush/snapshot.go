package metricspush

import (
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
)

// Snapshot holds point-in-time gauges describing the gamification population.
// It owns a private registry so pushes never include process-wide collectors.
type Snapshot struct {
	registry     *prometheus.Registry
	subjects     *prometheus.GaugeVec
	levelCounts  *prometheus.GaugeVec
	maxLevel     *prometheus.GaugeVec
	averageLevel *prometheus.GaugeVec
	memoryBytes  prometheus.Gauge
}

func NewSnapshot(constLabels prometheus.Labels) *Snapshot {
	s := &Snapshot{
		registry: prometheus.NewRegistry(),
		subjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "studiobook_gamification_subjects",
			Help:        "Subjects holding a gamification record.",
			ConstLabels: constLabels,
		}, []string{"role"}),
		levelCounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "studiobook_gamification_level_subjects",
			Help:        "Subjects currently at each level.",
			ConstLabels: constLabels,
		}, []string{"role", "level"}),
		maxLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "studiobook_gamification_max_level",
			Help:        "Highest level reached per role.",
			ConstLabels: constLabels,
		}, []string{"role"}),
		averageLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "studiobook_gamification_average_level",
			Help:        "Mean level per role.",
			ConstLabels: constLabels,
		}, []string{"role"}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "studiobook_process_memory_bytes",
			Help:        "Memory obtained from the OS by the process.",
			ConstLabels: constLabels,
		}),
	}
	s.registry.MustRegister(s.subjects, s.levelCounts, s.maxLevel, s.averageLevel, s.memoryBytes)
	return s
}

func (s *Snapshot) Registry() *prometheus.Registry {
	return s.registry
}

// Update replaces every gauge with the given stats. Roles or levels that
// disappeared since the last update are dropped.
func (s *Snapshot) Update(stats gamificationdomain.StatsResponse) {
	s.subjects.Reset()
	s.levelCounts.Reset()
	s.maxLevel.Reset()
	s.averageLevel.Reset()

	for _, role := range stats.Roles {
		label := string(role.SubjectRole)
		s.subjects.WithLabelValues(label).Set(float64(role.Subjects))
		s.maxLevel.WithLabelValues(label).Set(float64(role.MaxLevel))
		s.averageLevel.WithLabelValues(label).Set(role.AverageLevel)
	}
	for _, bucket := range stats.Histogram {
		s.levelCounts.WithLabelValues(string(bucket.SubjectRole), strconv.Itoa(bucket.Level)).Set(float64(bucket.Subjects))
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.memoryBytes.Set(float64(mem.Sys))
}
