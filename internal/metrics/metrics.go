// Package metrics exports render loop state to Prometheus. It learns
// everything from the event bus and never touches the loop directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreman2200/xmaslights/internal/events"
)

const namespace = "xmaslights"

// Collector owns a registry and the gauges fed from the bus.
type Collector struct {
	reg *prometheus.Registry

	fps      prometheus.Gauge
	power    prometheus.Gauge
	required prometheus.Gauge
	index    prometheus.Gauge
	ceiling  prometheus.Gauge
	link     prometheus.Gauge
	switches prometheus.Counter
	connects prometheus.Counter

	unsub []func()
}

// New registers the metrics and subscribes to bus.
func New(bus *events.Bus) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	c := &Collector{
		reg: reg,
		fps: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fps",
			Help: "Smoothed rate of frames pushed to the strip.",
		}),
		power: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_mw",
			Help: "Estimated draw of the last frame in milliwatts, after the ceiling.",
		}),
		required: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "required_power_mw",
			Help: "Estimated draw of the last frame in milliwatts at full brightness.",
		}),
		index: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "effect_index",
			Help: "Catalog index of the active effect.",
		}),
		ceiling: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_ceiling_active",
			Help: "1 while brightness is being scaled down to stay within the power budget.",
		}),
		link: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "link_connected",
			Help: "1 while a remote central is connected.",
		}),
		switches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "effect_switches_total",
			Help: "Effect transitions since start.",
		}),
		connects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "link_connections_total",
			Help: "Remote centrals accepted since start.",
		}),
	}
	c.unsub = append(c.unsub,
		bus.Subscribe(func(e events.FrameStats) {
			c.fps.Set(e.FPS)
			c.power.Set(e.PowerMW)
			c.required.Set(e.RequiredMW)
			c.index.Set(float64(e.Index))
			c.ceiling.Set(b2f(e.Limited))
		}),
		bus.Subscribe(func(e events.EffectSwitched) {
			c.switches.Inc()
			c.index.Set(float64(e.To))
		}),
		bus.Subscribe(func(e events.CeilingChanged) {
			c.ceiling.Set(b2f(e.Active))
		}),
		bus.Subscribe(func(e events.LinkChanged) {
			c.link.Set(b2f(e.Connected))
			if e.Connected {
				c.connects.Inc()
			}
		}),
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Close unsubscribes from the bus.
func (c *Collector) Close() {
	for _, u := range c.unsub {
		u()
	}
	c.unsub = nil
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
