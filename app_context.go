// app_context.go - process-wide application state
//
// The application context, control-socket handle, controlling-terminal
// fd, signal flags, and saved console mode all have to be reachable
// from signal handlers, so they live in one process-scoped context
// reached through a single atomic pointer, constructed after
// successful initialisation and torn down once via a registered exit
// hook.

package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// AppContext is the fixed-capacity vector of up to MaxTabs tab slots,
// the active tab index, and ancillary handles the event loop and
// signal handlers both need.
type AppContext struct {
	mu sync.Mutex

	tabs      [MaxTabs]*Tab
	numTabs   int
	activeTab int

	display DisplaySurface
	font    *FontRaster
	comp    *Compositor
	arbiter *ConsoleArbiter
	socket  *ControlSocket

	logger *slog.Logger

	displayActive atomic.Bool
	shutdown      atomic.Bool
	damage        atomic.Bool

	teardownOnce sync.Once
}

var globalCtx atomic.Pointer[AppContext]

// InitApp runs the four independent startup steps concurrently via
// errgroup.Group so the first hard failure cancels the rest: display
// open, font load, control-socket bind, raw-mode install. Any failure
// unwinds whatever already succeeded and returns a FatalError.
func InitApp(logFile *os.File) (*AppContext, error) {
	logger := newBracketLogger(logFile)
	ctx := &AppContext{logger: logger}

	var display DisplaySurface
	var font *FontRaster
	var socket *ControlSocket
	var arbiter *ConsoleArbiter

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		d, err := NewDisplaySurface(logger)
		if err != nil {
			return err
		}
		if err := d.Open(); err != nil {
			return err
		}
		display = d
		return nil
	})
	g.Go(func() error {
		f, err := LoadFontRaster()
		if err != nil {
			return err
		}
		font = f
		return nil
	})
	g.Go(func() error {
		s, err := NewControlSocket(logger)
		if err != nil {
			return err
		}
		socket = s
		return nil
	})
	g.Go(func() error {
		a, err := NewConsoleArbiter(logger)
		if err != nil {
			return err
		}
		arbiter = a
		return nil
	})

	if err := g.Wait(); err != nil {
		if display != nil {
			_ = display.Close()
		}
		if socket != nil {
			socket.Stop()
		}
		if arbiter != nil {
			arbiter.Restore()
		}
		return nil, fatalf("init", "application startup failed", err)
	}

	ctx.display = display
	ctx.font = font
	ctx.comp = NewCompositor(display, font)
	ctx.socket = socket
	ctx.arbiter = arbiter
	ctx.displayActive.Store(true)

	tab, err := NewTab(display.Config().Width, display.Config().Height, font.Metrics().CW, font.Metrics().CH)
	if err != nil {
		_ = display.Close()
		socket.Stop()
		arbiter.Restore()
		return nil, err
	}
	ctx.tabs[0] = tab
	ctx.numTabs = 1
	ctx.activeTab = 0

	arbiter.Bind(ctx)

	globalCtx.Store(ctx)
	return ctx, nil
}

// ActiveTab returns the currently focused tab, or nil if none are active.
func (a *AppContext) ActiveTab() *Tab {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs == 0 {
		return nil
	}
	return a.tabs[a.activeTab]
}

func (a *AppContext) NumTabs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.numTabs
}

func (a *AppContext) ActiveTabIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeTab
}

// NewTabCmd creates a fresh tab if numTabs < MaxTabs and makes it active.
func (a *AppContext) NewTabCmd() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs >= MaxTabs {
		return protocolf("new-tab", "tab limit reached")
	}
	cfg := a.display.Config()
	m := a.font.Metrics()
	tab, err := NewTab(cfg.Width, cfg.Height, m.CW, m.CH)
	if err != nil {
		return err
	}
	a.tabs[a.numTabs] = tab
	a.activeTab = a.numTabs
	a.numTabs++
	return nil
}

// NextTabCmd / PrevTabCmd cyclically shift the active tab index modulo numTabs.
func (a *AppContext) NextTabCmd() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs == 0 {
		return
	}
	a.activeTab = (a.activeTab + 1) % a.numTabs
}

func (a *AppContext) PrevTabCmd() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs == 0 {
		return
	}
	a.activeTab = (a.activeTab - 1 + a.numTabs) % a.numTabs
}

// SplitVerticalCmd splits the active tab.
func (a *AppContext) SplitVerticalCmd() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs == 0 {
		return protocolf("split-v", "no active tab")
	}
	return a.tabs[a.activeTab].SplitVertical()
}

func (a *AppContext) FocusLeftCmd() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs > 0 {
		a.tabs[a.activeTab].FocusLeft()
	}
}

func (a *AppContext) FocusRightCmd() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.numTabs > 0 {
		a.tabs[a.activeTab].FocusRight()
	}
}

// HandleTabPaneExit is invoked by the event loop when a pane's master
// signalled EOF/EIO. If the owning tab goes inactive and it was the
// active tab, the first remaining active tab becomes active; if none
// remain active, shutdown is requested.
func (a *AppContext) HandleTabPaneExit(tabIdx, paneIdx int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tabIdx < 0 || tabIdx >= a.numTabs {
		return
	}
	tabDied := a.tabs[tabIdx].HandlePaneExit(paneIdx)
	if !tabDied {
		return
	}
	if tabIdx != a.activeTab {
		return
	}
	for i := 0; i < a.numTabs; i++ {
		if a.tabs[i].isActive {
			a.activeTab = i
			return
		}
	}
	a.shutdown.Store(true)
}

func (a *AppContext) DisplayActive() bool     { return a.displayActive.Load() }
func (a *AppContext) SetDisplayActive(v bool) { a.displayActive.Store(v) }
func (a *AppContext) ShutdownRequested() bool { return a.shutdown.Load() }
func (a *AppContext) RequestShutdown()        { a.shutdown.Store(true) }

// MarkDamage flags that the next loop iteration must render even if no
// descriptor activity produced the wake; TakeDamage consumes the flag.
func (a *AppContext) MarkDamage()      { a.damage.Store(true) }
func (a *AppContext) TakeDamage() bool { return a.damage.Swap(false) }

// Teardown unwinds in reverse dependency order: raw mode -> virtual
// console mode -> control socket -> panes/tabs -> font -> display.
// Idempotent; safe to call from a registered process-exit hook on any
// exit path.
func (a *AppContext) Teardown() {
	a.teardownOnce.Do(func() {
		if a.arbiter != nil {
			a.arbiter.Restore()
		}
		if a.socket != nil {
			a.socket.Stop()
		}
		a.mu.Lock()
		for i := 0; i < a.numTabs; i++ {
			if a.tabs[i] != nil {
				a.tabs[i].Close()
			}
		}
		a.mu.Unlock()
		if a.display != nil {
			if err := a.display.Close(); err != nil {
				a.logger.Warn("teardown: display close failed", "err", err)
			}
		}
		a.logger.Info("teardown complete")
	})
}
