// main.go - client/server entry point
//
// With a command argument the binary tries to act as a client of a
// running server: dial the control socket, write the token, exit.
// When no server is reachable it becomes the server itself.

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/vtyd

License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
)

const usage = `Usage: vtyd [command]

With no command, runs the terminal server if one is not already
running on this display, or reports one is already running.

Commands:
  --new-tab, -nt     create a new tab
  --next, -n         switch to the next tab
  --prev, -p         switch to the previous tab
  --split-v, -s      split the active tab vertically
  --left, -l         focus the left pane
  --right, -r        focus the right pane
  --help, -h         show this message
  --version, -v      show build info and exit
`

func main() {
	if len(os.Args) > 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if len(os.Args) == 2 {
		arg := os.Args[1]
		if arg == "--help" || arg == "-h" {
			fmt.Print(usage)
			os.Exit(0)
		}
		if arg == "--version" || arg == "-v" {
			printVersion()
			os.Exit(0)
		}
		tok := normalizeCommand(arg)
		if tok == cmdUnknown {
			fmt.Fprintf(os.Stderr, "vtyd: unknown command %q\n\n%s", arg, usage)
			os.Exit(1)
		}
		if err := SendCommand(tok); err == nil {
			os.Exit(0)
		}
		// No server reachable: fall through and become the server,
		// discarding the requested command.
	}

	os.Exit(runServer())
}

// runServer opens the log file, brings up every subsystem, registers
// the teardown exit hook, and runs the event loop until shutdown.
func runServer() int {
	logPath := fmt.Sprintf("/tmp/%s.log", appName)
	logFile, err := os.Create(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vtyd: cannot create log file %s: %v\n", logPath, err)
		return 1
	}
	defer logFile.Close()

	ctx, err := InitApp(logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vtyd: startup failed: %v\n", err)
		return 1
	}
	defer ctx.Teardown()

	installTerminationHandlers()

	loop := NewEventLoop(ctx)
	if err := loop.Run(); err != nil {
		ctx.logger.Warn("event loop exited with error", "err", err)
		return 1
	}
	return 0
}
