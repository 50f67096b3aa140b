// console_arbiter.go - cooperative virtual-console release/acquire
//
// VT_SETMODE with VT_PROCESS and a release/acquire signal pair,
// acknowledged via VT_RELDISP, so the user can switch consoles away
// and back without the kernel and this process fighting over scan-out.
// Raw termios is installed directly through
// unix.IoctlGetTermios/SetTermios rather than golang.org/x/term's
// MakeRaw, because the flag set the terminal needs (no canonical mode,
// no echo, no signal generation, no postprocessing, 8-bit, VMIN=0
// VTIME=0) is more specific than MakeRaw's stock flags.

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	vtGetMode = 0x5601
	vtSetMode = 0x5602
	vtRelDisp = 0x5605
	vtProcess = 0x1

	// VT_RELDISP arguments: 1 acknowledges a release, vtAckAcq
	// acknowledges an acquisition.
	vtAckRelease = 0x1
	vtAckAcq     = 0x2
)

// vtMode mirrors struct vt_mode from <linux/vt.h>.
type vtMode struct {
	Mode   int8
	Waitv  int8
	Relsig int16
	Acqsig int16
	Frsig  int16
}

// ConsoleArbiter owns the controlling terminal's virtual-console mode
// and line discipline, restoring both on shutdown.
type ConsoleArbiter struct {
	logger *slog.Logger
	tty    *os.File
	fd     int

	hadVT      bool
	savedMode  vtMode
	savedTerm  unix.Termios

	sigCh chan os.Signal
	ctx   *AppContext
}

// NewConsoleArbiter opens /dev/tty, validates it is a real terminal,
// saves its current virtual-console mode and termios, then installs
// process-controlled VT switching and the raw line discipline.
func NewConsoleArbiter(logger *slog.Logger) (*ConsoleArbiter, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fatalf("console arbiter", "open /dev/tty failed", err)
	}
	fd := int(tty.Fd())

	if !term.IsTerminal(fd) {
		tty.Close()
		return nil, fatalf("console arbiter", "/dev/tty is not a terminal", nil)
	}

	a := &ConsoleArbiter{logger: logger, tty: tty, fd: fd}

	var old vtMode
	if err := ioctlVtMode(fd, vtGetMode, &old); err == nil {
		a.hadVT = true
		a.savedMode = old
	}

	savedTerm, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		tty.Close()
		return nil, fatalf("console arbiter", "TCGETS failed", err)
	}
	a.savedTerm = *savedTerm

	if a.hadVT {
		if err := a.takeProcessControl(); err != nil {
			tty.Close()
			return nil, err
		}
	}

	if err := a.installRaw(); err != nil {
		if a.hadVT {
			_ = ioctlVtMode(fd, vtSetMode, &a.savedMode)
		}
		tty.Close()
		return nil, err
	}

	a.installSignalHandlers()
	return a, nil
}

// Fd returns the controlling terminal's descriptor for the event
// loop's poll set.
func (a *ConsoleArbiter) Fd() int { return a.fd }

// ReadInput performs one non-blocking read of whatever input is
// waiting on the controlling terminal.
func (a *ConsoleArbiter) ReadInput(buf []byte) (int, error) {
	return unix.Read(a.fd, buf)
}

// Bind wires the arbiter to the AppContext whose displayActive flag
// and surface it toggles on release/acquire. Called once InitApp has
// constructed the context; release/acquire signals before this point
// are inert (acked without effect).
func (a *ConsoleArbiter) Bind(ctx *AppContext) { a.ctx = ctx }

func (a *ConsoleArbiter) takeProcessControl() error {
	m := vtMode{
		Mode:   vtProcess,
		Relsig: int16(syscall.SIGUSR1),
		Acqsig: int16(syscall.SIGUSR2),
	}
	return ioctlVtMode(a.fd, vtSetMode, &m)
}

// installRaw sets the line discipline to no canonical mode, no echo,
// no signal generation, no input/output postprocessing, 8-bit, with
// VMIN=0 VTIME=0 so reads never block waiting for a full line.
func (a *ConsoleArbiter) installRaw() error {
	raw := a.savedTerm
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(a.fd, unix.TCSETS, &raw)
}

func (a *ConsoleArbiter) installSignalHandlers() {
	a.sigCh = make(chan os.Signal, 4)
	signal.Notify(a.sigCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range a.sigCh {
			switch sig {
			case syscall.SIGUSR1:
				a.onRelease()
			case syscall.SIGUSR2:
				a.onAcquire()
			}
		}
	}()
}

// onRelease clears the display-active flag, drops scan-out master
// rights, and acknowledges the release to the kernel. Runs on the
// signal-delivery goroutine, touching only atomics and the display
// surface's master-rights calls, never application-context topology —
// consistent with the event loop owning every other mutation.
func (a *ConsoleArbiter) onRelease() {
	if a.ctx != nil {
		a.ctx.SetDisplayActive(false)
		if a.ctx.display != nil {
			if err := a.ctx.display.DropMaster(); err != nil {
				a.logger.Warn("console arbiter: drop master failed", "err", err)
			}
		}
	}
	if err := ioctlVtRelDisp(a.fd, vtAckRelease); err != nil {
		a.logger.Warn("console arbiter: VT_RELDISP ack failed", "err", err)
	}
}

// onAcquire re-takes scan-out master rights, acknowledges the
// acquisition, and sets the display active flag.
func (a *ConsoleArbiter) onAcquire() {
	if a.ctx != nil && a.ctx.display != nil {
		if err := a.ctx.display.AcquireMaster(); err != nil {
			a.logger.Warn("console arbiter: acquire master failed", "err", err)
		}
	}
	if err := ioctlVtRelDisp(a.fd, vtAckAcq); err != nil {
		a.logger.Warn("console arbiter: VT_RELDISP acquire-ack failed", "err", err)
	}
	if a.ctx != nil {
		a.ctx.SetDisplayActive(true)
		a.ctx.MarkDamage()
	}
}

// Restore puts the virtual-console mode and line discipline back the
// way they were found. Idempotent is the caller's (Teardown's)
// responsibility via sync.Once; safe to call once.
func (a *ConsoleArbiter) Restore() {
	if a.sigCh != nil {
		signal.Stop(a.sigCh)
		close(a.sigCh)
	}
	if a.hadVT {
		if err := ioctlVtMode(a.fd, vtSetMode, &a.savedMode); err != nil {
			a.logger.Warn("console arbiter: restore VT mode failed", "err", err)
		}
	}
	if err := unix.IoctlSetTermios(a.fd, unix.TCSETS, &a.savedTerm); err != nil {
		a.logger.Warn("console arbiter: restore termios failed", "err", err)
	}
	if a.tty != nil {
		a.tty.Close()
	}
}

func ioctlVtMode(fd int, op uintptr, m *vtMode) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), op, uintptr(unsafe.Pointer(m)))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlVtRelDisp(fd int, arg int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), vtRelDisp, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
