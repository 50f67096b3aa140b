// control_socket.go - local command socket
//
// A second invocation of the binary dials this socket and writes one
// bare command token; there is no reply and no framing. Accepting
// happens on the event-loop thread, never in a background goroutine:
// every mutation of the application context must run on that one
// thread, so the listener's fd is polled alongside the pane masters
// and AcceptOne is called synchronously when it is ready.

package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// commandToken is a normalised control-socket command.
type commandToken int

const (
	cmdUnknown commandToken = iota
	cmdNewTab
	cmdNext
	cmdPrev
	cmdSplitV
	cmdFocusLeft
	cmdFocusRight
)

var longForms = map[string]commandToken{
	"--new-tab": cmdNewTab,
	"--next":    cmdNext,
	"--prev":    cmdPrev,
	"--split-v": cmdSplitV,
	"--left":    cmdFocusLeft,
	"--right":   cmdFocusRight,
}

var shortForms = map[string]commandToken{
	"-nt": cmdNewTab,
	"-n":  cmdNext,
	"-p":  cmdPrev,
	"-s":  cmdSplitV,
	"-l":  cmdFocusLeft,
	"-r":  cmdFocusRight,
}

// normalizeCommand maps both long and short client tokens to the same
// server action.
func normalizeCommand(tok string) commandToken {
	tok = strings.TrimSpace(tok)
	if c, ok := longForms[tok]; ok {
		return c
	}
	if c, ok := shortForms[tok]; ok {
		return c
	}
	return cmdUnknown
}

// ControlSocket binds a stream socket at a per-user path and listens.
// Each accepted client is read for at most controlSocketMaxPayload
// bytes within a bounded timeout, interpreted as a command token,
// applied, and closed — all on the caller's goroutine.
type ControlSocket struct {
	listener *net.UnixListener
	logger   *slog.Logger
	sockPath string
	apply    func(commandToken) error
}

func controlSocketPath() string {
	return fmt.Sprintf("/tmp/%s_%d.sock", appName, os.Getuid())
}

// NewControlSocket binds the socket. The apply callback is wired in by
// the event loop once the AppContext exists.
func NewControlSocket(logger *slog.Logger) (*ControlSocket, error) {
	path := controlSocketPath()
	addr := &net.UnixAddr{Name: path, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		conn, dialErr := net.DialTimeout("unix", path, 2*time.Second)
		if dialErr != nil {
			os.Remove(path)
			ln, err = net.ListenUnix("unix", addr)
			if err != nil {
				return nil, fatalf("control socket bind", path, err)
			}
		} else {
			conn.Close()
			return nil, fatalf("control socket bind", "another instance is already running", nil)
		}
	}
	return &ControlSocket{listener: ln, logger: logger, sockPath: path}, nil
}

// SetApplyFunc wires the command handler in once the AppContext is
// available; must be called before the event loop starts polling.
func (s *ControlSocket) SetApplyFunc(fn func(commandToken) error) { s.apply = fn }

// ListenerFd returns the underlying fd for the event loop's poll set.
// The returned *os.File must not be closed by the caller; Stop() owns
// the listener's lifetime.
func (s *ControlSocket) ListenerFd() (int, error) {
	raw, err := s.listener.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	cerr := raw.Control(func(f uintptr) { fd = int(f) })
	if cerr != nil {
		return 0, cerr
	}
	return fd, nil
}

func (s *ControlSocket) Stop() {
	s.listener.Close()
	os.Remove(s.sockPath)
}

// AcceptOne accepts exactly one pending connection and dispatches its
// command. Called by the event loop when the listener fd is readable.
func (s *ControlSocket) AcceptOne() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	s.handleConn(conn)
}

func (s *ControlSocket) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(controlSocketReadTimeout))

	buf := make([]byte, controlSocketMaxPayload)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	tok := normalizeCommand(string(buf[:n]))
	if tok == cmdUnknown {
		s.logger.Warn("control socket: unknown command", "payload", string(buf[:n]))
		return
	}
	if s.apply == nil {
		return
	}
	if err := s.apply(tok); err != nil {
		s.logger.Warn("control socket: command failed", "err", err)
	}
}

// SendCommand is the client-mode path: connect to an existing server
// and write the normalised long-form token. Whether a short write is
// possible for such a small payload on a freshly connected stream
// socket is unspecified, so this uses the same full-write discipline
// as Pane.WriteInput rather than a single unchecked Write.
func SendCommand(tok commandToken) error {
	path := controlSocketPath()
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	var payload string
	for k, v := range longForms {
		if v == tok {
			payload = k
			break
		}
	}
	data := []byte(payload)
	for len(data) > 0 {
		n, err := conn.Write(data)
		if n > 0 {
			data = data[n:]
		}
		if err != nil {
			return err
		}
	}
	return nil
}
