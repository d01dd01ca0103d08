package browser

// ConnectionState tracks the lifecycle of the managed browser connection.
type ConnectionState int

const (
	// Disconnected means no live connection exists.
	Disconnected ConnectionState = iota

	// Connecting means a single connection attempt is in flight; concurrent
	// callers join it rather than starting their own.
	Connecting

	// Connected means a live browser handle is available for reuse.
	Connected
)

// String returns the state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// ViewportTag names a preset viewport size for new browser contexts.
type ViewportTag string

const (
	ViewportMobile  ViewportTag = "mobile"
	ViewportDesktop ViewportTag = "desktop"
)

// Viewport is a browser context viewport size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// viewportFor maps a tag to its preset size. Unknown or empty tags default
// to desktop.
func viewportFor(tag ViewportTag) Viewport {
	switch tag {
	case ViewportMobile:
		return Viewport{Width: 375, Height: 667}
	case ViewportDesktop:
		return Viewport{Width: 1920, Height: 1080}
	default:
		return Viewport{Width: 1920, Height: 1080}
	}
}
