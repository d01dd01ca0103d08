package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/remedy/pkg/logging"
)

// fakeConn is a minimal browser connection standing in for a playwright
// browser in manager tests.
type fakeConn struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	contexts  []playwright.BrowserNewContextOptions
}

func (f *fakeConn) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConn) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, options...)
	return nil, nil
}

func (f *fakeConn) Close(options ...playwright.BrowserCloseOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closed = true
	return nil
}

func newTestManager(dial dialFunc) *Manager {
	return &Manager{
		dial: dial,
		log:  logging.NewLogger("browser-test"),
	}
}

func TestConnect_ConcurrentCallersCoalesce(t *testing.T) {
	var dials int32
	conn := &fakeConn{connected: true}
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		atomic.AddInt32(&dials, 1)
		time.Sleep(20 * time.Millisecond) // hold the attempt open so callers pile up
		return conn, nil, nil
	})

	const callers = 25
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials), "concurrent callers must share one dial")
	assert.Equal(t, Connected, m.State())
}

func TestConnect_ReusesLiveConnection(t *testing.T) {
	var dials int32
	conn := &fakeConn{connected: true}
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Connect(context.Background()))

	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestConnect_RedialsWhenConnectionGoesStale(t *testing.T) {
	var dials int32
	first := &fakeConn{connected: true}
	second := &fakeConn{connected: true}
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		if atomic.AddInt32(&dials, 1) == 1 {
			return first, nil, nil
		}
		return second, nil, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	assert.True(t, m.IsConnected())

	// Simulate a liveness failure on the remote end.
	first.mu.Lock()
	first.connected = false
	first.mu.Unlock()

	assert.False(t, m.IsConnected())
	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&dials))
	assert.True(t, m.IsConnected())
	assert.True(t, first.closed, "stale connection should be closed before redial")
}

func TestConnect_FailurePropagatesToAllWaiters(t *testing.T) {
	dialErr := errors.New("farm unreachable")
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		time.Sleep(10 * time.Millisecond)
		return nil, nil, dialErr
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.ErrorIs(t, err, dialErr, "caller %d", i)
	}
	assert.Equal(t, Disconnected, m.State())
}

func TestDisconnect_Idempotent(t *testing.T) {
	var stops int32
	conn := &fakeConn{connected: true}
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		return conn, func() error {
			atomic.AddInt32(&stops, 1)
			return nil
		}, nil
	})

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Disconnect())
	require.NoError(t, m.Disconnect())
	require.NoError(t, m.Disconnect())

	assert.Equal(t, Disconnected, m.State())
	assert.True(t, conn.closed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stops))
}

func TestDisconnect_WithoutConnect(t *testing.T) {
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		t.Fatal("dial must not be called")
		return nil, nil, nil
	})

	require.NoError(t, m.Disconnect())
	assert.Equal(t, Disconnected, m.State())
}

func TestCreateContext_ViewportMapping(t *testing.T) {
	tests := []struct {
		name       string
		tag        ViewportTag
		wantWidth  int
		wantHeight int
	}{
		{"mobile", ViewportMobile, 375, 667},
		{"desktop", ViewportDesktop, 1920, 1080},
		{"unspecified defaults to desktop", ViewportTag(""), 1920, 1080},
		{"unknown defaults to desktop", ViewportTag("tablet"), 1920, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{connected: true}
			m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
				return conn, nil, nil
			})

			_, err := m.CreateContext(context.Background(), tt.tag)
			require.NoError(t, err)

			require.Len(t, conn.contexts, 1)
			opts := conn.contexts[0]
			require.NotNil(t, opts.Viewport)
			assert.Equal(t, tt.wantWidth, opts.Viewport.Width)
			assert.Equal(t, tt.wantHeight, opts.Viewport.Height)
		})
	}
}

func TestCreateContext_ConnectsLazily(t *testing.T) {
	var dials int32
	conn := &fakeConn{connected: true}
	m := newTestManager(func(ctx context.Context) (browserConn, func() error, error) {
		atomic.AddInt32(&dials, 1)
		return conn, nil, nil
	})

	assert.Equal(t, Disconnected, m.State())
	_, err := m.CreateContext(context.Background(), ViewportDesktop)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
	assert.Equal(t, Connected, m.State())
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
}
