package conn

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/models"
)

type fakeConn struct {
	frames   chan []byte
	done     chan struct{}
	once     sync.Once
	autoPong bool
}

func newFakeConn(autoPong bool) *fakeConn {
	return &fakeConn{
		frames:   make(chan []byte, 16),
		done:     make(chan struct{}),
		autoPong: autoPong,
	}
}

func (c *fakeConn) push(v any) {
	data, _ := json.Marshal(v)
	select {
	case c.frames <- data:
	case <-c.done:
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	case <-c.done:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	if c.autoPong {
		data, _ := json.Marshal(v)
		var frame struct {
			Action string `json:"action"`
		}
		if json.Unmarshal(data, &frame) == nil && frame.Action == "ping" {
			c.push(map[string]string{"event": "pong"})
		}
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

type fakeDialer struct {
	mu     sync.Mutex
	fail   bool
	dialed chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dialed: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	d.fail = fail
	d.mu.Unlock()
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	d.mu.Lock()
	fail := d.fail
	d.mu.Unlock()
	if fail {
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn(true)
	select {
	case d.dialed <- conn:
	default:
	}
	return conn, nil
}

type fakePoller struct {
	mu     sync.Mutex
	events []models.StreamEvent
	polls  int
}

func (p *fakePoller) PollEvents(ctx context.Context, since time.Time) ([]models.StreamEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	events := p.events
	p.events = nil
	return events, nil
}

func (p *fakePoller) pollCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// slowPoller holds its first poll open until released, returning the batch
// even after cancellation to mimic a response already on the wire.
type slowPoller struct {
	entered chan struct{}
	release chan struct{}
}

func (p *slowPoller) PollEvents(ctx context.Context, since time.Time) ([]models.StreamEvent, error) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.release
	return []models.StreamEvent{
		{ID: "poll-late", Type: "swap_accepted", EntityID: "swap-2", OccurredAt: time.Now()},
	}, nil
}

func testOptions(dialer *fakeDialer, poller EventPoller) Options {
	return Options{
		StreamURL:         "ws://stream.test/events",
		Dialer:            dialer,
		Poller:            poller,
		HeartbeatInterval: time.Minute,
		BackoffMin:        time.Millisecond,
		BackoffMax:        5 * time.Millisecond,
		FallbackAfter:     3,
		PollInterval:      5 * time.Millisecond,
	}
}

func TestManagerDeliversEventsInArrivalOrder(t *testing.T) {
	dialer := newFakeDialer()
	manager := NewManager(testOptions(dialer, nil))
	defer manager.Disconnect()

	var mu sync.Mutex
	var seen []string
	manager.Subscribe(func(event models.StreamEvent) {
		mu.Lock()
		seen = append(seen, event.ID)
		mu.Unlock()
	})

	require.NoError(t, manager.Connect(context.Background()))

	var conn *fakeConn
	select {
	case conn = <-dialer.dialed:
	case <-time.After(time.Second):
		t.Fatal("dial never happened")
	}

	for _, id := range []string{"ev-1", "ev-2", "ev-3"} {
		conn.push(models.StreamEvent{ID: id, Type: "swap_accepted", EntityID: "swap-1", OccurredAt: time.Now()})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, []string{"ev-1", "ev-2", "ev-3"}, seen)
	mu.Unlock()

	require.True(t, manager.Health().IsConnected)
}

func TestManagerFallsBackAfterConsecutiveFailures(t *testing.T) {
	dialer := newFakeDialer()
	dialer.setFail(true)
	poller := &fakePoller{events: []models.StreamEvent{
		{ID: "poll-1", Type: "swap_accepted", EntityID: "swap-9", OccurredAt: time.Now()},
	}}
	manager := NewManager(testOptions(dialer, poller))
	defer manager.Disconnect()

	var mu sync.Mutex
	var received []string
	manager.Subscribe(func(event models.StreamEvent) {
		mu.Lock()
		received = append(received, event.ID)
		mu.Unlock()
	})

	require.NoError(t, manager.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return manager.State() == models.ConnectionFallback
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0] == "poll-1"
	}, time.Second, 5*time.Millisecond)

	require.True(t, manager.Health().FallbackActive)
	require.GreaterOrEqual(t, manager.RecentErrorCount(), 3)

	// channel recovery halts polling and returns to live delivery
	dialer.setFail(false)
	require.Eventually(t, func() bool {
		return manager.State() == models.ConnectionConnected
	}, time.Second, 5*time.Millisecond)

	require.False(t, manager.Health().FallbackActive)
	settled := poller.pollCount()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, poller.pollCount())
}

func TestLivePromotionWaitsForPollDrain(t *testing.T) {
	dialer := newFakeDialer()
	dialer.setFail(true)
	poller := &slowPoller{entered: make(chan struct{}, 1), release: make(chan struct{})}
	manager := NewManager(testOptions(dialer, poller))
	defer manager.Disconnect()

	var mu sync.Mutex
	var order []string
	manager.Subscribe(func(event models.StreamEvent) {
		mu.Lock()
		order = append(order, "event:"+event.ID)
		mu.Unlock()
	})
	manager.SubscribeState(func(state models.ConnectionState) {
		mu.Lock()
		order = append(order, "state:"+string(state))
		mu.Unlock()
	})

	require.NoError(t, manager.Connect(context.Background()))

	select {
	case <-poller.entered:
	case <-time.After(time.Second):
		t.Fatal("fallback poll never started")
	}

	// the channel recovers while a poll is still in flight; its batch must
	// land before the connection reports connected
	dialer.setFail(false)
	time.Sleep(20 * time.Millisecond)
	close(poller.release)

	require.Eventually(t, func() bool {
		return manager.State() == models.ConnectionConnected
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	eventIdx, connectedIdx := -1, -1
	for i, entry := range order {
		switch entry {
		case "event:poll-late":
			eventIdx = i
		case "state:" + string(models.ConnectionConnected):
			if connectedIdx == -1 {
				connectedIdx = i
			}
		}
	}
	require.NotEqual(t, -1, eventIdx, "polled batch never delivered")
	require.NotEqual(t, -1, connectedIdx, "connected transition never observed")
	require.Less(t, eventIdx, connectedIdx)
}

func TestConnectRejectsInvalidEndpoint(t *testing.T) {
	manager := NewManager(Options{StreamURL: "http://not-a-stream"})

	err := manager.Connect(context.Background())
	require.Error(t, err)
	require.Equal(t, models.ConnectionError, manager.State())

	// terminal until reinitialized
	require.Error(t, manager.Connect(context.Background()))

	manager.Reinitialize()
	require.Equal(t, models.ConnectionIdle, manager.State())
}

func TestSubscribeDisposerStopsDelivery(t *testing.T) {
	dialer := newFakeDialer()
	manager := NewManager(testOptions(dialer, nil))
	defer manager.Disconnect()

	var mu sync.Mutex
	count := 0
	dispose := manager.Subscribe(func(models.StreamEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.NoError(t, manager.Connect(context.Background()))
	conn := <-dialer.dialed

	conn.push(models.StreamEvent{ID: "ev-1", Type: "swap_accepted", OccurredAt: time.Now()})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)

	dispose()
	conn.push(models.StreamEvent{ID: "ev-2", Type: "swap_accepted", OccurredAt: time.Now()})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	require.Equal(t, 1, count)
	mu.Unlock()
}

func TestConnectionProbeOnThrowawayConnection(t *testing.T) {
	dialer := newFakeDialer()
	manager := NewManager(testOptions(dialer, nil))

	latency, err := manager.TestConnection(context.Background())
	require.NoError(t, err)
	require.Greater(t, latency, time.Duration(0))
}

func TestStateSubscriptionObservesTransitions(t *testing.T) {
	dialer := newFakeDialer()
	manager := NewManager(testOptions(dialer, nil))
	defer manager.Disconnect()

	states := make(chan models.ConnectionState, 8)
	manager.SubscribeState(func(state models.ConnectionState) {
		states <- state
	})

	require.NoError(t, manager.Connect(context.Background()))

	expect := func(want models.ConnectionState) {
		t.Helper()
		select {
		case got := <-states:
			require.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("never observed state %s", want)
		}
	}

	expect(models.ConnectionConnecting)
	expect(models.ConnectionConnected)
}
