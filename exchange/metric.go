package exchange

import (
	"sync/atomic"
)

// ClientMetrics contains atomic metrics for a client.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ClientMetrics struct {
	// RequestSendCount indicates the number of request frames transmitted.
	RequestSendCount atomic.Uint64
	// ResponseRecvCount indicates the number of inbound messages matched to a pending request.
	ResponseRecvCount atomic.Uint64
	// UnsolicitedCount indicates the number of inbound messages no request was waiting for.
	UnsolicitedCount atomic.Uint64
	// RejectedCount indicates the number of requests rejected by a connection drop or Close.
	RejectedCount atomic.Uint64

	// ConnectCount indicates the number of connection attempts.
	ConnectCount atomic.Uint64
	// DisconnectCount indicates the number of transitions into the disconnected state.
	DisconnectCount atomic.Uint64
	// IdleTimeoutCount indicates the number of idle timeouts.
	IdleTimeoutCount atomic.Uint64
	// OpenTimeoutCount indicates the number of open timeouts.
	OpenTimeoutCount atomic.Uint64
	// TokenRenewCount indicates the number of tokens stored by the token required hook.
	TokenRenewCount atomic.Uint64

	// PendingGauge indicates the number of requests waiting for a reply.
	PendingGauge atomic.Int64
}

func (m *ClientMetrics) incRequestSendCount() {
	m.RequestSendCount.Add(1)
}

func (m *ClientMetrics) incResponseRecvCount() {
	m.ResponseRecvCount.Add(1)
}

func (m *ClientMetrics) incUnsolicitedCount() {
	m.UnsolicitedCount.Add(1)
}

func (m *ClientMetrics) incRejectedCount() {
	m.RejectedCount.Add(1)
}

func (m *ClientMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *ClientMetrics) incDisconnectCount() {
	m.DisconnectCount.Add(1)
}

func (m *ClientMetrics) incIdleTimeoutCount() {
	m.IdleTimeoutCount.Add(1)
}

func (m *ClientMetrics) incOpenTimeoutCount() {
	m.OpenTimeoutCount.Add(1)
}

func (m *ClientMetrics) incTokenRenewCount() {
	m.TokenRenewCount.Add(1)
}

func (m *ClientMetrics) incPendingGauge() {
	m.PendingGauge.Add(1)
}

func (m *ClientMetrics) decPendingGauge() {
	m.PendingGauge.Add(-1)
}
