package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thereceipt/escpos-driver/internal/escpos"
	"github.com/thereceipt/escpos-driver/internal/layout"
	"github.com/thereceipt/escpos-driver/internal/status"
)

// ErrJobExpired marks a job dropped because it waited past its window
var ErrJobExpired = errors.New("job expired")

// Default eligibility windows and retry delay
const (
	DefaultReceiptWindow = time.Hour
	DefaultCashboxWindow = 12 * time.Second
	DefaultRetryBackoff  = 5 * time.Second
	DefaultHomepagePort  = 8069
)

// Locator opens the printer for one job
type Locator interface {
	Open() escpos.Device
	ActiveDeviceID() (string, bool)
}

// StatusStore is the tracker the dispatcher reports to and answers from
type StatusStore interface {
	status.Setter
	Snapshot() status.Snapshot
}

// AddressLookup returns the host address printed on the status ticket
type AddressLookup interface {
	Address() (string, error)
}

// Config tunes a Dispatcher. Zero values take the defaults.
type Config struct {
	ReceiptWindow time.Duration
	CashboxWindow time.Duration
	RetryBackoff  time.Duration
	HomepagePort  int
	Layout        layout.Options

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

func (c Config) withDefaults() Config {
	if c.ReceiptWindow <= 0 {
		c.ReceiptWindow = DefaultReceiptWindow
	}
	if c.CashboxWindow <= 0 {
		c.CashboxWindow = DefaultCashboxWindow
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.HomepagePort == 0 {
		c.HomepagePort = DefaultHomepagePort
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = sleep
	}
	return c
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Dispatcher owns the printer. A single goroutine, started by the first
// Enqueue, runs every job in FIFO order so device operations never overlap.
type Dispatcher struct {
	locator   Locator
	status    StatusStore
	addresses AddressLookup
	cfg       Config
	queue     *queue

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a dispatcher. Nothing runs until the first job is enqueued.
func New(locator Locator, st StatusStore, addresses AddressLookup, cfg Config) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		locator:   locator,
		status:    st,
		addresses: addresses,
		cfg:       cfg.withDefaults(),
		queue:     newQueue(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Enqueue stamps and queues a job. It never blocks.
func (d *Dispatcher) Enqueue(kind Kind, payload Payload) {
	d.submit(Job{
		EnqueuedAt: d.cfg.Now(),
		Kind:       kind,
		Payload:    payload,
	})
}

// PrintReceipt queues a laid out receipt
func (d *Dispatcher) PrintReceipt(r *layout.Receipt) {
	d.Enqueue(Receipt, ReceiptPayload{Receipt: r})
}

// PrintXMLReceipt queues a markup document rendered by the printer handle
func (d *Dispatcher) PrintXMLReceipt(doc string) {
	d.Enqueue(XMLReceipt, XMLPayload{Document: doc})
}

// OpenCashbox queues a cash drawer pulse
func (d *Dispatcher) OpenCashbox() {
	d.Enqueue(Cashbox, nil)
}

// PrintStatus queues the diagnostic ticket
func (d *Dispatcher) PrintStatus() {
	d.Enqueue(PrintStatus, nil)
}

// Status triggers a fresh connection attempt and returns the current
// snapshot without waiting for it.
func (d *Dispatcher) Status() status.Snapshot {
	d.Enqueue(StatusPing, nil)
	return d.status.Snapshot()
}

// ActiveDeviceID triggers a fresh connection attempt and returns the
// identity of the last opened device.
func (d *Dispatcher) ActiveDeviceID() (string, bool) {
	d.Enqueue(StatusPing, nil)
	return d.LastDeviceID()
}

// LastDeviceID returns the identity of the last opened device without
// queuing a ping
func (d *Dispatcher) LastDeviceID() (string, bool) {
	return d.locator.ActiveDeviceID()
}

// Len returns the number of jobs waiting
func (d *Dispatcher) Len() int {
	return d.queue.len()
}

// Stop discards pending jobs and waits for the running one to finish or
// ctx to end. Jobs enqueued afterwards are dropped.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	started := d.started
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	d.queue.close()
	if !started {
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) submit(job Job) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		log.Warn().Str("job", job.Kind.String()).Msg("dispatcher stopped, dropping job")
		return
	}
	if !d.started {
		d.started = true
		go d.run()
	}
	d.mu.Unlock()

	d.queue.push(job)
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		job, ok := d.queue.pop()
		if !ok {
			return
		}
		d.process(job)
	}
}

// process runs one job. Failures become an error status, never a crash.
func (d *Dispatcher) process(job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.status.Set(status.Error, fmt.Sprint(r))
			log.Error().
				Str("job", job.Kind.String()).
				Str("stack", string(debug.Stack())).
				Msgf("panic while printing: %v", r)
		}
	}()

	dev := d.locator.Open()
	if dev == nil {
		// this attempt answers every ping already waiting
		if n := d.queue.dropPings(); n > 0 {
			log.Debug().Int("pings", n).Msg("printer absent, dropping queued status pings")
		}
		if job.Kind != StatusPing {
			d.queue.pushFront(job)
		}
		d.cfg.Sleep(d.ctx, d.cfg.RetryBackoff)
		return
	}
	defer d.closeDevice(dev)

	err := d.execute(dev, job)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobExpired):
		log.Debug().
			Str("job", job.Kind.String()).
			Time("enqueued_at", job.EnqueuedAt).
			Msg("dropping expired job")
	default:
		d.status.Set(status.Error, err.Error())
		log.Error().Stack().Err(err).Str("job", job.Kind.String()).Msg("print job failed")
	}
}

func (d *Dispatcher) closeDevice(dev escpos.Device) {
	if err := dev.Close(); err != nil {
		log.Warn().Err(err).Msg("closing printer")
	}
}

func (d *Dispatcher) execute(dev escpos.Device, job Job) error {
	now := d.cfg.Now()

	switch job.Kind {
	case Receipt:
		if job.EnqueuedAt.Before(now.Add(-d.cfg.ReceiptWindow)) {
			return ErrJobExpired
		}
		p, ok := job.Payload.(ReceiptPayload)
		if !ok || p.Receipt == nil {
			return errors.Errorf("receipt job without receipt payload (%T)", job.Payload)
		}
		if err := layout.Play(dev, layout.Render(*p.Receipt, d.cfg.Layout)); err != nil {
			return err
		}
		return dev.Cut()

	case XMLReceipt:
		if job.EnqueuedAt.Before(now.Add(-d.cfg.ReceiptWindow)) {
			return ErrJobExpired
		}
		p, ok := job.Payload.(XMLPayload)
		if !ok {
			return errors.Errorf("xml receipt job without document payload (%T)", job.Payload)
		}
		return dev.PrintRawDocument(p.Document)

	case Cashbox:
		if job.EnqueuedAt.Before(now.Add(-d.cfg.CashboxWindow)) {
			return ErrJobExpired
		}
		if err := dev.CashDraw(escpos.DrawerPin2); err != nil {
			return err
		}
		return dev.CashDraw(escpos.DrawerPin5)

	case PrintStatus:
		address, err := d.addresses.Address()
		if err != nil {
			log.Warn().Err(err).Msg("host address lookup failed")
			address = ""
		}
		return layout.Play(dev, layout.StatusTicket(address, d.cfg.HomepagePort))

	case StatusPing:
		return nil
	}

	return errors.Errorf("unknown job kind %s", job.Kind)
}
