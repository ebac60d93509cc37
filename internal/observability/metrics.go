// Package observability exports client and boiler readings as prometheus metrics.
package observability

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/exchange"
)

const namespace = "kotel"

// RegisterClientMetrics registers the counters of m and the connection state reported by state.
func RegisterClientMetrics(reg prometheus.Registerer, m *exchange.ClientMetrics, state func() exchange.ConnState) error {
	counter := func(name, help string, load func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(load()) })
	}

	collectors := []prometheus.Collector{
		counter("requests_sent_total", "Request frames transmitted.", m.RequestSendCount.Load),
		counter("responses_received_total", "Replies matched to a pending request.", m.ResponseRecvCount.Load),
		counter("unsolicited_total", "Inbound messages no request was waiting for.", m.UnsolicitedCount.Load),
		counter("rejected_total", "Requests rejected by a connection drop.", m.RejectedCount.Load),
		counter("connects_total", "Connection attempts.", m.ConnectCount.Load),
		counter("disconnects_total", "Connection drops.", m.DisconnectCount.Load),
		counter("idle_timeouts_total", "Connections dropped for silence.", m.IdleTimeoutCount.Load),
		counter("open_timeouts_total", "Connection attempts that did not open in time.", m.OpenTimeoutCount.Load),
		counter("token_renewals_total", "Tokens obtained after the device refused the current one.", m.TokenRenewCount.Load),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "pending_requests",
			Help:      "Requests waiting for a reply.",
		}, func() float64 { return float64(m.PendingGauge.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connection_open",
			Help:      "1 while the connection is open.",
		}, func() float64 {
			if state().IsOpen() {
				return 1
			}
			return 0
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// RegisterStatus registers gauges reading the latest status returned by last. Gauges of a
// missing status or an absent sensor report NaN.
func RegisterStatus(reg prometheus.Registerer, last func() *boiler.Status) error {
	gauge := func(name, help string, read func(st *boiler.Status) (float64, bool)) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "boiler",
			Name:      name,
			Help:      help,
		}, func() float64 {
			st := last()
			if st == nil {
				return math.NaN()
			}
			v, ok := read(st)
			if !ok {
				return math.NaN()
			}
			return v
		})
	}
	temp := func(t boiler.Temperature) (float64, bool) { return t.Value, t.Present }

	collectors := []prometheus.Collector{
		gauge("output_temperature_celsius", "Output water temperature.", func(st *boiler.Status) (float64, bool) {
			return temp(st.Output)
		}),
		gauge("input_temperature_celsius", "Return water temperature.", func(st *boiler.Status) (float64, bool) {
			return temp(st.Input)
		}),
		gauge("tray_fill_kilograms", "Fuel left in the tray.", func(st *boiler.Status) (float64, bool) {
			return float64(st.TrayFillKg), true
		}),
		gauge("fan_speed_percent", "Current fan speed.", func(st *boiler.Status) (float64, bool) {
			return float64(st.Fan), true
		}),
		gauge("pump_on", "1 while the pump runs.", func(st *boiler.Status) (float64, bool) {
			return boolValue(st.Pump), true
		}),
		gauge("wifi_rssi_dbm", "WiFi signal strength.", func(st *boiler.Status) (float64, bool) {
			return float64(st.RSSI), true
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
