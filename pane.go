// pane.go - one pty-backed shell session with its own vt10x terminal
//
// github.com/creack/pty spawns the child against a pty pair,
// github.com/hinshun/vt10x tracks the resulting screen state. Master
// I/O is raw non-blocking syscalls so the event loop's poll stays the
// only place this process ever waits indefinitely.

package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/hinshun/vt10x"
	"golang.org/x/sys/unix"
)

// Pane wraps one pseudo-terminal master, one child process, and one
// terminal-emulation state machine sized to a column/row grid.
type Pane struct {
	mu    sync.Mutex
	state paneState

	ptmx *os.File
	fd   int
	cmd  *exec.Cmd
	vt   vt10x.Terminal

	cols, rows int
	cw, ch     int
	startColPx int

	doneCh chan struct{}
}

// NewPane spawns a child attached to a freshly opened pty, sized to
// (cols, rows), with a vt10x terminal of the same size wired to it so
// cursor-position queries are answered by writing back to the master.
// cw/ch are the font raster's cell metrics, needed to transmit the
// pixel-exact window size alongside the cell grid: some child programs
// read the kernel's pixel fields instead of querying the font.
func NewPane(cols, rows, cw, ch, startColPx int) (*Pane, error) {
	if cols < 1 || rows < 1 {
		return nil, paneFatalf("pane create", "non-positive grid size", nil)
	}

	p := &Pane{state: paneSpawning, cols: cols, rows: rows, cw: cw, ch: ch, startColPx: startColPx, doneCh: make(chan struct{})}

	cmd := exec.Command(defaultShell)
	env := os.Environ()
	hasTerm := false
	for _, e := range env {
		if len(e) > 5 && e[:5] == "TERM=" {
			hasTerm = true
			break
		}
	}
	if !hasTerm {
		env = append(env, "TERM=xterm-256color")
	}
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cols), Rows: uint16(rows),
		X: uint16(cols * cw), Y: uint16(rows * ch),
	})
	if err != nil {
		return nil, paneFatalf("pane spawn", "pty start failed", err)
	}
	// Fd() detaches the descriptor from the runtime poller; all master
	// I/O from here on is raw syscalls on fd, so reads genuinely return
	// EAGAIN instead of parking in the poller.
	fd := int(ptmx.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = ptmx.Close()
		return nil, paneFatalf("pane spawn", "set nonblocking failed", err)
	}

	p.ptmx = ptmx
	p.fd = fd
	p.cmd = cmd
	// WithWriter lets the emulator answer DSR/CPR cursor-position
	// queries by writing back to the master.
	p.vt = vt10x.New(vt10x.WithSize(cols, rows), vt10x.WithWriter(ptmx))
	p.state = paneRunning

	go func() {
		_ = cmd.Wait()
		close(p.doneCh)
	}()

	return p, nil
}

// MasterFd is the descriptor the event loop polls for readability.
func (p *Pane) MasterFd() int { return p.fd }

// Drain loops non-blocking reads into a 4KiB buffer until the master
// has nothing more right now, feeding every arrived byte to the
// terminal emulator in order. Returns (false, nil) when nothing was
// waiting, (fed, err) on EOF/EIO (pane end-of-life), and (true, nil)
// after consuming bytes.
func (p *Pane) Drain() (fed bool, err error) {
	buf := make([]byte, paneReadBufSize)
	for {
		n, rerr := syscall.Read(p.fd, buf)
		if n > 0 {
			p.vt.Write(buf[:n])
			fed = true
		}
		if rerr != nil {
			if rerr == syscall.EINTR {
				continue
			}
			if rerr == syscall.EAGAIN || rerr == syscall.EWOULDBLOCK {
				return fed, nil
			}
			// EIO is how the master reports the slave side closing.
			return fed, rerr
		}
		if n == 0 {
			return fed, io.EOF
		}
	}
}

// WriteInput pushes keystroke bytes to the child, looping until every
// byte is written. Transient EINTR retries immediately; a blocked
// write waits up to paneWriteBlockWait for the master to become
// writable and resumes, bounded to paneWriteMaxRetries consecutive
// blocking waits. Input cannot be dropped without corrupting the
// shell's state, so this is a full-write helper, never fire-and-forget.
func (p *Pane) WriteInput(data []byte) error {
	retries := 0
	for len(data) > 0 {
		n, err := syscall.Write(p.fd, data)
		if n > 0 {
			data = data[n:]
			retries = 0
		}
		if err == nil {
			continue
		}
		if err == syscall.EINTR {
			continue
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			retries++
			if retries > paneWriteMaxRetries {
				return &EngineError{Operation: "pane write", Details: "exceeded blocking retry budget"}
			}
			p.waitWritable()
			continue
		}
		return &EngineError{Operation: "pane write", Details: "master write failed", Err: err}
	}
	return nil
}

// waitWritable polls the master for writability for up to
// paneWriteBlockWait; a timeout just hands control back to the retry
// loop, which enforces the overall budget.
func (p *Pane) waitWritable() {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLOUT}}
	_, _ = unix.Poll(fds, int(paneWriteBlockWait/time.Millisecond))
}

// Resize updates the emulator size and propagates a pixel-and-cell
// window-size update to the kernel.
func (p *Pane) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cols < 1 || rows < 1 {
		return &EngineError{Operation: "pane resize", Details: "non-positive grid size"}
	}
	p.cols, p.rows = cols, rows
	p.vt.Resize(cols, rows)
	// Raw TIOCSWINSZ on the captured fd; pty.Setsize would go back
	// through File.Fd() and re-block the descriptor.
	ws := unix.Winsize{
		Col: uint16(cols), Row: uint16(rows),
		Xpixel: uint16(cols * p.cw), Ypixel: uint16(rows * p.ch),
	}
	if err := unix.IoctlSetWinsize(p.fd, unix.TIOCSWINSZ, &ws); err != nil {
		return &EngineError{Operation: "pane resize", Details: "TIOCSWINSZ failed", Err: err}
	}
	return nil
}

// Cell returns the cell at (col, row) from the emulator's grid.
func (p *Pane) Cell(col, row int) vt10x.Glyph {
	p.vt.Lock()
	defer p.vt.Unlock()
	return p.vt.Cell(col, row)
}

// CursorPosition returns the emulator's current cursor cell.
func (p *Pane) CursorPosition() (col, row int) {
	c := p.vt.Cursor()
	return c.X, c.Y
}

// IsAlive reports whether the pane's child hasn't exited.
func (p *Pane) IsAlive() bool {
	select {
	case <-p.doneCh:
		return false
	default:
		return true
	}
}

// Close shuts down the master and reaps the child. Idempotent.
func (p *Pane) Close() {
	p.mu.Lock()
	if p.state == paneClosed {
		p.mu.Unlock()
		return
	}
	p.state = paneDraining
	p.mu.Unlock()

	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGHUP)
	}
	select {
	case <-p.doneCh:
	case <-time.After(2 * time.Second):
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-p.doneCh
	}
	_ = p.ptmx.Close()

	p.mu.Lock()
	p.state = paneClosed
	p.mu.Unlock()
}

func (p *Pane) String() string {
	return fmt.Sprintf("pane(%dx%d @%s)", p.cols, p.rows, p.state)
}
