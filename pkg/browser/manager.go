// Package browser manages the shared connection to a headless browser
// backend and exposes the DOM operations the remediation pipeline needs.
//
// A single Manager instance is owned by one scan session. The connection is
// created lazily on first use, reused by every caller, and torn down
// explicitly at session end or when a liveness check fails. Concurrent
// Connect calls while an attempt is in flight are coalesced into that one
// attempt; callers never trigger duplicate dials.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/remedy/pkg/logging"
)

// browserConn is the slice of playwright.Browser the manager depends on.
// Narrowed so tests can substitute a fake without a real browser.
type browserConn interface {
	IsConnected() bool
	NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error)
	Close(options ...playwright.BrowserCloseOptions) error
}

// dialFunc establishes a browser connection. The returned stop function
// releases any resources backing the connection (e.g. the playwright
// driver) and is invoked on Disconnect.
type dialFunc func(ctx context.Context) (browserConn, func() error, error)

// connectAttempt is a single in-flight dial that concurrent callers wait on.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// Manager owns the shared browser connection for one scan session.
type Manager struct {
	mu      sync.Mutex
	state   ConnectionState
	conn    browserConn
	stop    func() error
	attempt *connectAttempt

	dial dialFunc
	log  *logging.Logger
}

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	headless bool
	policy   RetryPolicy
	sleep    SleepFunc
}

// WithHeadless controls whether a locally launched browser runs headless.
// Defaults to true.
func WithHeadless(headless bool) Option {
	return func(c *managerConfig) {
		c.headless = headless
	}
}

// WithRetryPolicy overrides the remote dial retry schedule.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *managerConfig) {
		c.policy = policy
	}
}

// WithSleep overrides the sleep function used between retry attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(c *managerConfig) {
		c.sleep = sleep
	}
}

func applyOptions(opts []Option) managerConfig {
	cfg := managerConfig{
		headless: true,
		policy:   DefaultRemoteRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewLocalManager returns a Manager that launches an isolated local browser
// process. Launch failures are immediately fatal to the attempt; there is
// no retry for local launches.
func NewLocalManager(opts ...Option) *Manager {
	cfg := applyOptions(opts)
	m := &Manager{log: logging.NewLogger("browser")}
	m.dial = func(ctx context.Context) (browserConn, func() error, error) {
		return dialLocal(cfg.headless)
	}
	return m
}

// NewRemoteManager returns a Manager that dials a remote browser farm over
// a persistent websocket transport with bearer-token authentication. The
// dial is wrapped in the configured retry policy; exhausting all attempts
// propagates the last observed error.
func NewRemoteManager(endpoint, token string, opts ...Option) *Manager {
	cfg := applyOptions(opts)
	m := &Manager{log: logging.NewLogger("browser")}
	m.dial = func(ctx context.Context) (browserConn, func() error, error) {
		type dialResult struct {
			conn browserConn
			stop func() error
		}
		result, err := retry(ctx, cfg.policy, cfg.sleep, func(ctx context.Context) (dialResult, error) {
			conn, stop, err := dialRemote(endpoint, token)
			if err != nil {
				m.log.Warnf("remote dial failed: %v", err)
				return dialResult{}, err
			}
			return dialResult{conn: conn, stop: stop}, nil
		})
		if err != nil {
			return nil, nil, err
		}
		return result.conn, result.stop, nil
	}
	return m
}

func runDriver() (*playwright.Playwright, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return pw, nil
}

func dialLocal(headless bool) (browserConn, func() error, error) {
	pw, err := runDriver()
	if err != nil {
		return nil, nil, err
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return b, pw.Stop, nil
}

func dialRemote(endpoint, token string) (browserConn, func() error, error) {
	pw, err := runDriver()
	if err != nil {
		return nil, nil, err
	}
	b, err := pw.Chromium.Connect(endpoint, playwright.BrowserTypeConnectOptions{
		Headers: map[string]string{"Authorization": "Bearer " + token},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, nil, fmt.Errorf("failed to connect to browser farm: %w", err)
	}
	return b, pw.Stop, nil
}

// Connect ensures a live browser connection exists. If already connected
// and live, the existing connection is reused. If an attempt is in flight,
// the caller waits for that same attempt. Otherwise a new attempt begins.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()

	if m.state == Connected && m.conn != nil && m.conn.IsConnected() {
		m.mu.Unlock()
		return nil
	}

	if m.attempt != nil {
		a := m.attempt
		m.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Either never connected, or the previous connection went stale.
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
		if m.stop != nil {
			_ = m.stop()
			m.stop = nil
		}
	}

	a := &connectAttempt{done: make(chan struct{})}
	m.attempt = a
	m.state = Connecting
	m.mu.Unlock()

	m.log.Infof("connecting to browser backend")
	conn, stop, err := m.dial(ctx)

	m.mu.Lock()
	a.err = err
	close(a.done)
	m.attempt = nil
	if err != nil {
		m.state = Disconnected
		m.log.Errorf("connection attempt failed: %v", err)
	} else {
		m.state = Connected
		m.conn = conn
		m.stop = stop
		m.log.Infof("browser connected")
	}
	m.mu.Unlock()

	return err
}

// Disconnect tears down the connection. Idempotent; always leaves the
// manager Disconnected.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.conn != nil {
		err = m.conn.Close()
		m.conn = nil
	}
	if m.stop != nil {
		if stopErr := m.stop(); err == nil {
			err = stopErr
		}
		m.stop = nil
	}
	m.state = Disconnected
	return err
}

// IsConnected reports the live status of the underlying handle, not merely
// the last-known state.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Connected && m.conn != nil && m.conn.IsConnected()
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CreateContext ensures the manager is connected and opens a new browser
// context sized for the given viewport tag (desktop when unspecified).
func (m *Manager) CreateContext(ctx context.Context, tag ViewportTag) (playwright.BrowserContext, error) {
	if err := m.Connect(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("browser connection lost before context creation")
	}

	size := viewportFor(tag)
	bc, err := conn.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: size.Width, Height: size.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return bc, nil
}

// OpenPage creates a context for the viewport tag, opens a page in it, and
// navigates to the given URL. The returned Page carries the DOM operations
// used by the apply step.
func (m *Manager) OpenPage(ctx context.Context, url string, tag ViewportTag) (*Page, error) {
	bc, err := m.CreateContext(ctx, tag)
	if err != nil {
		return nil, err
	}

	page, err := bc.NewPage()
	if err != nil {
		_ = bc.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if _, err := page.Goto(url); err != nil {
		_ = page.Close()
		_ = bc.Close()
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	return &Page{page: page, context: bc}, nil
}
