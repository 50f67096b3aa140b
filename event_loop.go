// event_loop.go - the single thread every mutation runs on
//
// One unix.Poll wait over a dynamic set of descriptors: every live
// pane's master, the controlling terminal's input, and the
// control-socket listener. EINTR (delivered whenever a VT switch or
// termination signal lands mid-wait) is treated as "retry".

package main

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// EventLoop owns the poll set and drives rendering.
type EventLoop struct {
	ctx    *AppContext
	logger *slog.Logger
}

func NewEventLoop(ctx *AppContext) *EventLoop {
	return &EventLoop{ctx: ctx, logger: ctx.logger}
}

// Run blocks until shutdown is requested (by signal, control command,
// or every pane in every tab exiting).
func (l *EventLoop) Run() error {
	l.ctx.socket.SetApplyFunc(l.applyCommand)

	// Paint the initial frame; afterwards rendering is change-driven.
	if l.ctx.DisplayActive() {
		if err := l.ctx.comp.Render(l.ctx); err != nil {
			l.logger.Warn("event loop: initial render failed", "err", err)
		}
	}

	for !l.ctx.ShutdownRequested() {
		// A VT re-acquire marks damage from the signal path; commit the
		// latest state as soon as the interrupted wait returns.
		if l.ctx.TakeDamage() && l.ctx.DisplayActive() {
			if err := l.ctx.comp.Render(l.ctx); err != nil {
				l.logger.Warn("event loop: render failed", "err", err)
			}
		}

		fds, paneIndex := l.buildPollSet()
		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return &EngineError{Operation: "event loop poll", Err: err}
		}
		if n == 0 {
			continue
		}

		changed := false

		for i, pe := range fds {
			if pe.Revents == 0 {
				continue
			}
			switch {
			case i == 0:
				if pe.Revents&unix.POLLIN != 0 {
					l.handleTerminalInput()
					changed = true
				}
			case i == 1:
				if pe.Revents&unix.POLLIN != 0 {
					l.ctx.socket.AcceptOne()
					changed = true
				}
			default:
				loc := paneIndex[i]
				if l.drainPane(loc.tab, loc.pane) {
					changed = true
				}
			}
		}

		if changed && l.ctx.DisplayActive() && !l.ctx.ShutdownRequested() {
			if err := l.ctx.comp.Render(l.ctx); err != nil {
				l.logger.Warn("event loop: render failed", "err", err)
			}
		}
	}
	return nil
}

type paneLocation struct{ tab, pane int }

// buildPollSet lays out descriptors as [terminal, listener, pane...]
// and returns a parallel index from poll-array position to (tab,
// pane) for every pane slot beyond position 1.
func (l *EventLoop) buildPollSet() ([]unix.PollFd, map[int]paneLocation) {
	fds := []unix.PollFd{
		{Fd: int32(l.ctx.arbiter.Fd()), Events: unix.POLLIN},
	}
	listenerFd, err := l.ctx.socket.ListenerFd()
	if err != nil {
		listenerFd = -1
	}
	fds = append(fds, unix.PollFd{Fd: int32(listenerFd), Events: unix.POLLIN})

	index := make(map[int]paneLocation)
	l.ctx.mu.Lock()
	for t := 0; t < l.ctx.numTabs; t++ {
		tab := l.ctx.tabs[t]
		if tab == nil {
			continue
		}
		for p, pane := range tab.Panes() {
			if pane == nil || !pane.IsAlive() {
				continue
			}
			fds = append(fds, unix.PollFd{Fd: int32(pane.MasterFd()), Events: unix.POLLIN})
			index[len(fds)-1] = paneLocation{tab: t, pane: p}
		}
	}
	l.ctx.mu.Unlock()
	return fds, index
}

func (l *EventLoop) handleTerminalInput() {
	buf := make([]byte, paneReadBufSize)
	n, err := l.ctx.arbiter.ReadInput(buf)
	if err != nil || n == 0 {
		return
	}
	tab := l.ctx.ActiveTab()
	if tab == nil {
		return
	}
	if werr := tab.ActivePane().WriteInput(buf[:n]); werr != nil {
		l.logger.Warn("event loop: forward input failed", "err", werr)
	}
}

// drainPane feeds arrived bytes to one pane's emulator and handles
// its exit. Returns whether a render-worthy change occurred.
func (l *EventLoop) drainPane(tabIdx, paneIdx int) bool {
	l.ctx.mu.Lock()
	if tabIdx >= l.ctx.numTabs {
		l.ctx.mu.Unlock()
		return false
	}
	tab := l.ctx.tabs[tabIdx]
	l.ctx.mu.Unlock()
	if tab == nil || paneIdx >= tab.numPanes {
		return false
	}
	pane := tab.panes[paneIdx]
	if pane == nil {
		return false
	}

	fed, err := pane.Drain()
	if err != nil {
		l.ctx.HandleTabPaneExit(tabIdx, paneIdx)
		return true
	}
	return fed
}

func (l *EventLoop) applyCommand(tok commandToken) error {
	switch tok {
	case cmdNewTab:
		return l.ctx.NewTabCmd()
	case cmdNext:
		l.ctx.NextTabCmd()
	case cmdPrev:
		l.ctx.PrevTabCmd()
	case cmdSplitV:
		return l.ctx.SplitVerticalCmd()
	case cmdFocusLeft:
		l.ctx.FocusLeftCmd()
	case cmdFocusRight:
		l.ctx.FocusRightCmd()
	}
	return nil
}
