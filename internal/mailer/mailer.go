package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/metrics"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("message has no recipient")

type Message struct {
	To      []string
	Subject string
	Body    string
	HTML    bool
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through a single SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	if msg.HTML {
		m.SetBody("text/html", msg.Body)
	} else {
		m.SetBody("text/plain", msg.Body)
	}
	return s.dialer.DialAndSend(m)
}

// NoopSender logs instead of sending. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) error {
	logger.FromCtx(ctx).Debug("mail not sent, smtp disabled",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

const (
	sendTimeout = 30 * time.Second
	queueSize   = 256
)

var errQueueFull = errors.New("mail queue is full")

// Dispatcher sends mail in the background. Messages wait in a bounded queue
// and a feeder hands them to the worker pool, blocking only itself while all
// workers are busy.
type Dispatcher struct {
	sender  Sender
	pool    *ants.Pool
	metrics *metrics.Registry
	queue   chan Message
	fed     chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, workers int, reg *metrics.Registry) (*Dispatcher, error) {
	return newDispatcher(sender, workers, queueSize, reg)
}

func newDispatcher(sender Sender, workers, queue int, reg *metrics.Registry) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = queueSize
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	pool, err := ants.NewPool(workers,
		ants.WithPanicHandler(func(p any) {
			logger.L().Error("mail worker panic", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		sender:  sender,
		pool:    pool,
		metrics: reg,
		queue:   make(chan Message, queue),
		fed:     make(chan struct{}),
	}
	go d.feed()
	return d, nil
}

// Enqueue never blocks. It returns false when the queue is full or the
// dispatcher is closed and the message was dropped.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if len(msg.To) == 0 {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(msg, ants.ErrPoolClosed)
		return false
	}
	d.wg.Add(1)
	select {
	case d.queue <- msg:
		return true
	default:
		d.wg.Done()
		d.drop(msg, errQueueFull)
		return false
	}
}

func (d *Dispatcher) feed() {
	defer close(d.fed)
	for msg := range d.queue {
		msg := msg
		err := d.pool.Submit(func() {
			defer d.wg.Done()
			d.send(msg)
		})
		if err != nil {
			d.wg.Done()
			d.drop(msg, err)
		}
	}
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.metrics.MailFailed.Inc()
		logger.L().Error("failed to send mail",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}
	d.metrics.MailSent.Inc()
}

func (d *Dispatcher) drop(msg Message, err error) {
	d.metrics.MailDropped.Inc()
	logger.L().Warn("mail dropped", zap.String("subject", msg.Subject), zap.Error(err))
}

// Close stops accepting mail and waits up to timeout for queued sends, then
// releases the pool.
func (d *Dispatcher) Close(timeout time.Duration) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = errors.New("timed out waiting for mail workers")
	}
	d.pool.Release()
	if err == nil {
		<-d.fed
	}
	return err
}
