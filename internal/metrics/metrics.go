package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry holds the process wide counters exposed to admins.
type Registry struct {
	WebhooksReceived  Counter
	WebhooksDuplicate Counter
	WebhooksFailed    Counter

	PaymentsStarted Counter
	PaymentsFailed  Counter

	ReconcileRuns    Counter
	ReconcileUpdated Counter
	lastReconcileNs  atomic.Int64

	MailSent    Counter
	MailFailed  Counter
	MailDropped Counter

	startedAt time.Time
}

func NewRegistry() *Registry {
	return &Registry{startedAt: time.Now()}
}

// ObserveReconcile records one reconcile pass and how long it took.
func (r *Registry) ObserveReconcile(t *Timer, updated int) {
	r.ReconcileRuns.Inc()
	if updated > 0 {
		r.ReconcileUpdated.Add(uint64(updated))
	}
	r.lastReconcileNs.Store(int64(t.Duration()))
}

type Snapshot struct {
	UptimeSeconds int64 `json:"uptimeSeconds"`

	WebhooksReceived  uint64 `json:"webhooksReceived"`
	WebhooksDuplicate uint64 `json:"webhooksDuplicate"`
	WebhooksFailed    uint64 `json:"webhooksFailed"`

	PaymentsStarted uint64 `json:"paymentsStarted"`
	PaymentsFailed  uint64 `json:"paymentsFailed"`

	ReconcileRuns       uint64 `json:"reconcileRuns"`
	ReconcileUpdated    uint64 `json:"reconcileUpdated"`
	LastReconcileMillis int64  `json:"lastReconcileMillis"`

	MailSent    uint64 `json:"mailSent"`
	MailFailed  uint64 `json:"mailFailed"`
	MailDropped uint64 `json:"mailDropped"`
}

func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:       int64(time.Since(r.startedAt).Seconds()),
		WebhooksReceived:    r.WebhooksReceived.Load(),
		WebhooksDuplicate:   r.WebhooksDuplicate.Load(),
		WebhooksFailed:      r.WebhooksFailed.Load(),
		PaymentsStarted:     r.PaymentsStarted.Load(),
		PaymentsFailed:      r.PaymentsFailed.Load(),
		ReconcileRuns:       r.ReconcileRuns.Load(),
		ReconcileUpdated:    r.ReconcileUpdated.Load(),
		LastReconcileMillis: time.Duration(r.lastReconcileNs.Load()).Milliseconds(),
		MailSent:            r.MailSent.Load(),
		MailFailed:          r.MailFailed.Load(),
		MailDropped:         r.MailDropped.Load(),
	}
}
