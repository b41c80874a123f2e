package service

import (
	"os/exec"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/devrick225/partenairemagb-payments/app/factory"
)

// RedirectHandle tracks an opened external payment page.
type RedirectHandle interface {
	// Closed reports whether the surface has been closed by the user.
	Closed() bool
	// Close releases the handle and stops tracking.
	Close()
}

// RedirectOpener opens the provider's hosted payment page as an
// independent browsing surface. Open returns an error when the surface
// cannot be opened at all (blocked), which callers treat as a retryable
// initialization error rather than falling through to polling.
type RedirectOpener interface {
	Open(url string) (RedirectHandle, error)
}

// BrowserOpener launches the system browser. The browser process exiting
// is the closest observable signal to "the user closed the page".
type BrowserOpener struct {
	log logrus.FieldLogger
}

func NewBrowserOpener() *BrowserOpener {
	return &BrowserOpener{log: factory.NewModuleLogger("redirect-opener")}
}

func (o *BrowserOpener) Open(url string) (RedirectHandle, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-W", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		o.log.WithError(err).WithField("url", url).Warn("Could not open payment page")
		return nil, err
	}

	handle := &processHandle{}
	go func() {
		_ = cmd.Wait()
		handle.mu.Lock()
		handle.closed = true
		handle.mu.Unlock()
	}()
	return handle, nil
}

type processHandle struct {
	mu     sync.Mutex
	closed bool
}

func (h *processHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *processHandle) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}
