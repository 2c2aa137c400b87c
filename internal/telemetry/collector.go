package telemetry

import (
	"github.com/Borislavv/go-lrng/internal/feeder"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lrng"

type metric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(s snapshot) uint64
}

// Collector exports the engine and feeder counters to Prometheus.
// Values are read on every scrape, nothing is cached between scrapes.
type Collector struct {
	sampler  sampler
	state    *prometheus.Desc
	pool     *prometheus.Desc
	primary  *prometheus.Desc
	shards   *prometheus.Desc
	counters []metric
}

func NewCollector(e Source, f feeder.Feeder) *Collector {
	counter := func(subsystem, name, help string, value func(s snapshot) uint64) metric {
		return metric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil),
			kind:  prometheus.CounterValue,
			value: value,
		}
	}

	return &Collector{
		sampler: newSampler(e, f),
		state: prometheus.NewDesc(prometheus.BuildFQName(namespace, "primary", "seed_state"),
			"Seeding state of the primary DRNG: 0 unseeded, 1 initial, 2 minimally, 3 fully seeded.",
			[]string{"backend"}, nil),
		pool: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "entropy_bits"),
			"Entropy credited to the pool and not yet extracted.", nil, nil),
		primary: prometheus.NewDesc(prometheus.BuildFQName(namespace, "primary", "entropy_bits"),
			"Entropy held by the primary DRNG.", nil, nil),
		shards: prometheus.NewDesc(prometheus.BuildFQName(namespace, "secondary", "shards"),
			"Per-node secondary DRNG instances.", nil, nil),
		counters: []metric{
			counter("pool", "mixed_words_total", "Words mixed into the pool.", func(s snapshot) uint64 { return s.poolMixed }),
			counter("pool", "stuck_rejected_total", "Events rejected by the stuck test.", func(s snapshot) uint64 { return s.stuckRejected }),
			counter("primary", "reseeds_total", "Primary DRNG reseeds from the pool.", func(s snapshot) uint64 { return s.primaryReseeds }),
			counter("primary", "generated_bytes_total", "Bytes generated by the primary DRNG.", func(s snapshot) uint64 { return s.primaryBytes }),
			counter("primary", "errors_total", "Primary DRNG primitive failures.", func(s snapshot) uint64 { return s.primaryErrors }),
			counter("secondary", "reseeds_total", "Secondary DRNG reseeds.", func(s snapshot) uint64 { return s.secondaryReseeds }),
			counter("secondary", "generated_bytes_total", "Bytes generated by the secondary DRNGs.", func(s snapshot) uint64 { return s.secondaryBytes }),
			counter("secondary", "errors_total", "Secondary DRNG primitive failures.", func(s snapshot) uint64 { return s.secondaryErrors }),
			counter("reseeder", "runs_total", "Background seed work units executed.", func(s snapshot) uint64 { return s.seedRuns }),
			counter("feeder", "events_total", "Timing events delivered by the feeder.", func(s snapshot) uint64 { return s.feederEvents }),
			counter("feeder", "injected_bytes_total", "Operating system bytes injected by the feeder.", func(s snapshot) uint64 { return s.feederInjected }),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.pool
	ch <- c.primary
	ch <- c.shards
	for _, m := range c.counters {
		ch <- m.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m, s := c.sampler.snapshot()

	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(m.State), m.Backend)
	ch <- prometheus.MustNewConstMetric(c.pool, prometheus.GaugeValue, float64(m.PoolEntropyBits))
	ch <- prometheus.MustNewConstMetric(c.primary, prometheus.GaugeValue, float64(m.PrimaryEntropyBits))
	ch <- prometheus.MustNewConstMetric(c.shards, prometheus.GaugeValue, float64(m.Shards))
	for _, cm := range c.counters {
		ch <- prometheus.MustNewConstMetric(cm.desc, cm.kind, float64(cm.value(s)))
	}
}
