package dispatch

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/escpos-driver/internal/escpos"
	"github.com/thereceipt/escpos-driver/internal/layout"
	"github.com/thereceipt/escpos-driver/internal/netinfo"
	"github.com/thereceipt/escpos-driver/internal/status"
)

// recorder collects every device call across the handles it hands out
type recorder struct {
	mu     sync.Mutex
	calls  []string
	closes int
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) closed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.snapshot() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeDevice struct {
	rec     *recorder
	textErr error
	panicOn string
}

func (d *fakeDevice) Text(s string) error {
	if d.panicOn != "" && strings.Contains(s, d.panicOn) {
		panic("layout exploded")
	}
	if d.textErr != nil {
		return d.textErr
	}
	d.rec.add("text:" + s)
	return nil
}

func (d *fakeDevice) SetStyle(layout.Style) error {
	d.rec.add("style")
	return nil
}

func (d *fakeDevice) Cut() error {
	d.rec.add("cut")
	return nil
}

func (d *fakeDevice) PrintImage(image.Image) error {
	d.rec.add("image")
	return nil
}

func (d *fakeDevice) PrintBase64Image(string) error {
	d.rec.add("base64")
	return nil
}

func (d *fakeDevice) CashDraw(pin int) error {
	d.rec.add(fmt.Sprintf("cashdraw:%d", pin))
	return nil
}

func (d *fakeDevice) PrintRawDocument(doc string) error {
	d.rec.add("raw:" + doc)
	return nil
}

func (d *fakeDevice) Close() error {
	d.rec.mu.Lock()
	d.rec.closes++
	d.rec.mu.Unlock()
	return nil
}

// fakeLocator fails the first `missing` opens, then hands out devices
type fakeLocator struct {
	mu      sync.Mutex
	rec     *recorder
	missing int
	never   bool
	opens   int
	device  func(*recorder) *fakeDevice
	onOpen  func()
}

func (l *fakeLocator) Open() escpos.Device {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.opens++
	if l.onOpen != nil {
		l.onOpen()
	}
	if l.never || l.opens <= l.missing {
		return nil
	}
	if l.device != nil {
		return l.device(l.rec)
	}
	return &fakeDevice{rec: l.rec}
}

func (l *fakeLocator) ActiveDeviceID() (string, bool) {
	return "1208_3587", true
}

func (l *fakeLocator) plugIn() {
	l.mu.Lock()
	l.never = false
	l.mu.Unlock()
}

func (l *fakeLocator) openCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens
}

// manualClock only moves when told to
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// gatedSleep reports each backoff on sleeps and waits for release
func gatedSleep(sleeps chan<- struct{}, release <-chan struct{}) func(context.Context, time.Duration) {
	return func(ctx context.Context, _ time.Duration) {
		select {
		case sleeps <- struct{}{}:
		case <-ctx.Done():
			return
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
}

type fixedAddress struct {
	address string
	err     error
}

func (a fixedAddress) Address() (string, error) { return a.address, a.err }

var epoch = time.Date(2024, 3, 14, 8, 5, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T, loc *fakeLocator) (*Dispatcher, *status.Tracker) {
	t.Helper()
	tracker := status.NewTracker()
	d := New(loc, tracker, fixedAddress{address: "192.168.1.20"}, Config{
		Now:   func() time.Time { return epoch },
		Sleep: func(context.Context, time.Duration) {},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, d.Stop(ctx))
	})
	return d, tracker
}

func sampleReceipt() *layout.Receipt {
	return &layout.Receipt{
		OrderLines: []layout.OrderLine{
			{ProductName: "Coffee", Quantity: 1, Price: 10, PriceDisplay: 10, UnitName: layout.DefaultUnit},
		},
		TaxDetails:   []layout.TaxDetail{{Tax: layout.Tax{Name: "10%"}, Amount: 1}},
		Subtotal:     10,
		TotalWithTax: 11,
		TotalTax:     1,
		Name:         "Order 1",
		Precision:    layout.Precision{Price: 2, Money: 2, Quantity: 3},
	}
}

func waitClosed(t *testing.T, rec *recorder, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return rec.closed() >= n }, time.Second, time.Millisecond)
}

func TestReceiptWindow(t *testing.T) {
	rec := &recorder{}
	d, _ := newTestDispatcher(t, &fakeLocator{rec: rec})

	old := sampleReceipt()
	old.Name = "Old order"
	d.submit(Job{EnqueuedAt: epoch.Add(-2 * time.Hour), Kind: Receipt, Payload: ReceiptPayload{Receipt: old}})
	d.submit(Job{EnqueuedAt: epoch, Kind: Receipt, Payload: ReceiptPayload{Receipt: sampleReceipt()}})
	waitClosed(t, rec, 2)

	text := strings.Join(rec.snapshot(), "|")
	assert.NotContains(t, text, "Old order")
	assert.Contains(t, text, "Order 1")
	assert.Equal(t, 1, rec.count("cut"))
}

func TestReceiptWindowBoundary(t *testing.T) {
	rec := &recorder{}
	d, _ := newTestDispatcher(t, &fakeLocator{rec: rec})

	d.submit(Job{EnqueuedAt: epoch.Add(-time.Hour), Kind: XMLReceipt, Payload: XMLPayload{Document: "edge"}})
	waitClosed(t, rec, 1)

	assert.Equal(t, []string{"raw:edge"}, rec.snapshot())
}

func TestCashboxWindow(t *testing.T) {
	rec := &recorder{}
	d, _ := newTestDispatcher(t, &fakeLocator{rec: rec})

	d.submit(Job{EnqueuedAt: epoch.Add(-13 * time.Second), Kind: Cashbox})
	d.OpenCashbox()
	waitClosed(t, rec, 2)

	assert.Equal(t, []string{"cashdraw:2", "cashdraw:5"}, rec.snapshot())
}

func TestXMLReceiptHasNoExplicitCut(t *testing.T) {
	rec := &recorder{}
	d, _ := newTestDispatcher(t, &fakeLocator{rec: rec})

	d.PrintXMLReceipt("<receipt>hi</receipt>")
	waitClosed(t, rec, 1)

	assert.Equal(t, []string{"raw:<receipt>hi</receipt>"}, rec.snapshot())
}

func TestPrintStatusTicket(t *testing.T) {
	rec := &recorder{}
	d, _ := newTestDispatcher(t, &fakeLocator{rec: rec})

	d.PrintStatus()
	waitClosed(t, rec, 1)

	text := strings.Join(rec.snapshot(), "|")
	assert.Contains(t, text, "http://192.168.1.20:8069")
	assert.Contains(t, text, "image")
	assert.Equal(t, "cut", rec.snapshot()[len(rec.snapshot())-1])
}

func TestPrintStatusWithoutAddress(t *testing.T) {
	rec := &recorder{}
	tracker := status.NewTracker()
	d := New(&fakeLocator{rec: rec}, tracker, fixedAddress{err: errors.New("no route")}, Config{
		Sleep: func(context.Context, time.Duration) {},
	})
	defer d.Stop(context.Background())

	d.PrintStatus()
	waitClosed(t, rec, 1)

	assert.Contains(t, strings.Join(rec.snapshot(), "|"), "Could not connect to LAN")
}

func TestPrintStatusWhenEchoServiceFails(t *testing.T) {
	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer echo.Close()

	rec := &recorder{}
	d := New(&fakeLocator{rec: rec}, status.NewTracker(), netinfo.NewPublic(echo.URL, nil), Config{
		Sleep: func(context.Context, time.Duration) {},
	})
	defer d.Stop(context.Background())

	d.PrintStatus()
	waitClosed(t, rec, 1)

	text := strings.Join(rec.snapshot(), "|")
	assert.Contains(t, text, "Could not connect to LAN")
	assert.NotContains(t, text, "Homepage")
}

func TestRequeueKeepsFIFOOrder(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec, missing: 3}
	d, _ := newTestDispatcher(t, loc)

	d.PrintXMLReceipt("first")
	d.PrintXMLReceipt("second")
	d.PrintXMLReceipt("third")
	waitClosed(t, rec, 3)

	assert.Equal(t, []string{"raw:first", "raw:second", "raw:third"}, rec.snapshot())
	assert.Equal(t, 6, loc.openCount())
}

func TestRequeueWhileNoDevice(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec, never: true}
	sleeps := make(chan time.Duration)
	release := make(chan struct{})
	d := New(loc, status.NewTracker(), fixedAddress{}, Config{
		Sleep: func(ctx context.Context, dur time.Duration) {
			select {
			case sleeps <- dur:
			case <-ctx.Done():
				return
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
		},
	})
	defer d.Stop(context.Background())

	d.OpenCashbox()
	assert.Equal(t, DefaultRetryBackoff, <-sleeps)
	assert.Equal(t, 1, d.Len())
	release <- struct{}{}

	assert.Equal(t, DefaultRetryBackoff, <-sleeps)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 2, loc.openCount())
	assert.Empty(t, rec.snapshot())
}

func TestStatusPingNotRequeued(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec, never: true}
	d, tracker := newTestDispatcher(t, loc)
	tracker.Set(status.Disconnected, "Printer Not Found")

	snap := d.Status()
	assert.Equal(t, status.Disconnected, snap.State)

	require.Eventually(t, func() bool { return loc.openCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, loc.openCount())
	assert.Equal(t, 0, d.Len())
}

func TestPendingPingsAreCoalesced(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec, never: true}
	sleeps := make(chan struct{})
	release := make(chan struct{})
	d := New(loc, status.NewTracker(), fixedAddress{}, Config{Sleep: gatedSleep(sleeps, release)})
	defer d.Stop(context.Background())

	d.PrintXMLReceipt("order")
	<-sleeps

	d.Status()
	d.ActiveDeviceID()
	d.Status()
	assert.Equal(t, 2, d.Len())

	// the next failed attempt answers the waiting ping
	release <- struct{}{}
	<-sleeps
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 2, loc.openCount())
}

func TestOutagePollingDoesNotStarveCashbox(t *testing.T) {
	rec := &recorder{}
	clock := &manualClock{now: epoch}
	loc := &fakeLocator{rec: rec, never: true, onOpen: func() { clock.advance(100 * time.Millisecond) }}
	sleeps := make(chan struct{})
	release := make(chan struct{})
	d := New(loc, status.NewTracker(), fixedAddress{}, Config{
		Now:   clock.Now,
		Sleep: gatedSleep(sleeps, release),
	})
	defer d.Stop(context.Background())

	d.PrintXMLReceipt("order")
	<-sleeps

	for i := 0; i < 300; i++ {
		d.Status()
	}
	assert.Equal(t, 2, d.Len())

	loc.plugIn()
	close(release)
	d.OpenCashbox()

	// receipt, the one ping, cashbox
	waitClosed(t, rec, 3)
	assert.Equal(t, []string{"raw:order", "cashdraw:2", "cashdraw:5"}, rec.snapshot())
	assert.Equal(t, 4, loc.openCount())
}

func TestLastDeviceIDDoesNotPing(t *testing.T) {
	loc := &fakeLocator{rec: &recorder{}}
	d, _ := newTestDispatcher(t, loc)

	id, ok := d.LastDeviceID()
	assert.True(t, ok)
	assert.Equal(t, "1208_3587", id)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 0, loc.openCount())
}

func TestActiveDeviceIDPings(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec}
	d, _ := newTestDispatcher(t, loc)

	id, ok := d.ActiveDeviceID()
	assert.True(t, ok)
	assert.Equal(t, "1208_3587", id)

	waitClosed(t, rec, 1)
	assert.Empty(t, rec.snapshot())
}

func TestDeviceErrorSetsStatusAndContinues(t *testing.T) {
	rec := &recorder{}
	failing := true
	loc := &fakeLocator{rec: rec, device: func(r *recorder) *fakeDevice {
		dev := &fakeDevice{rec: r}
		if failing {
			dev.textErr = errors.Wrap(escpos.ErrDeviceIO, "write 12 bytes")
			failing = false
		}
		return dev
	}}
	d, tracker := newTestDispatcher(t, loc)

	d.PrintReceipt(sampleReceipt())
	waitClosed(t, rec, 1)

	snap := tracker.Snapshot()
	assert.Equal(t, status.Error, snap.State)
	require.Len(t, snap.Messages, 1)
	assert.Contains(t, snap.Messages[0], "write 12 bytes: printer io")

	d.OpenCashbox()
	waitClosed(t, rec, 2)
	calls := rec.snapshot()
	assert.Equal(t, []string{"cashdraw:2", "cashdraw:5"}, calls[len(calls)-2:])
}

func TestPanicInJobIsRecovered(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec, device: func(r *recorder) *fakeDevice {
		return &fakeDevice{rec: r, panicOn: "Coffee"}
	}}
	d, tracker := newTestDispatcher(t, loc)

	d.PrintReceipt(sampleReceipt())
	waitClosed(t, rec, 1)
	require.Eventually(t, func() bool { return tracker.Snapshot().State == status.Error }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"layout exploded"}, tracker.Snapshot().Messages)

	d.OpenCashbox()
	waitClosed(t, rec, 2)
	assert.Equal(t, 1, rec.count("cashdraw:2"))
}

func TestMissingPayloadIsAnError(t *testing.T) {
	rec := &recorder{}
	d, tracker := newTestDispatcher(t, &fakeLocator{rec: rec})

	d.Enqueue(Receipt, nil)
	waitClosed(t, rec, 1)
	require.Eventually(t, func() bool { return tracker.Snapshot().State == status.Error }, time.Second, time.Millisecond)
}

func TestStopDropsLaterJobs(t *testing.T) {
	rec := &recorder{}
	loc := &fakeLocator{rec: rec}
	d := New(loc, status.NewTracker(), fixedAddress{}, Config{})

	d.OpenCashbox()
	waitClosed(t, rec, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	d.OpenCashbox()
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 1, loc.openCount())
}

func TestStopBeforeStart(t *testing.T) {
	d := New(&fakeLocator{rec: &recorder{}}, status.NewTracker(), fixedAddress{}, Config{})
	assert.NoError(t, d.Stop(context.Background()))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "receipt", Receipt.String())
	assert.Equal(t, "xml_receipt", XMLReceipt.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
