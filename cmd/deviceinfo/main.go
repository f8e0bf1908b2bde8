package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/stone-age-io/deviceinfo/internal/agent"
	"github.com/stone-age-io/deviceinfo/internal/probe"
	"github.com/stone-age-io/deviceinfo/internal/report"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one collect-and-submit cycle and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("deviceinfo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (default: platform config path)")
	name := fs.String("name", "", "operator name; prompted for when empty")
	show := fs.Bool("show", false, "print the collected machine info and exit")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "deviceinfo %s (report format %s)\n", version, report.AgentVersion)
		return 0
	}

	a, err := agent.New(*configPath, version)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	fmt.Fprintln(stdout, "Collecting device information...")
	info := a.Collect()
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, agent.FormatMachineInfo(info))
	fmt.Fprintln(stdout)

	if *show {
		return 0
	}

	in := bufio.NewReader(stdin)
	interactive := *name == ""
	userName := *name
	if interactive {
		fmt.Fprint(stdout, "Enter your name: ")
		userName = readLine(in)
	}

	code := submit(a, userName, info, stdout)

	if interactive {
		fmt.Fprint(stdout, "Press Enter to exit...")
		readLine(in)
	}
	return code
}

func submit(a *agent.Agent, userName string, info probe.MachineInfo, stdout io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcome, err := a.Submit(ctx, userName, info)
	switch {
	case errors.Is(err, report.ErrEmptyUserName):
		fmt.Fprintln(stdout, "A name is required. Nothing was sent.")
		return 1
	case err != nil:
		fmt.Fprintf(stdout, "Could not reach the server: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, outcome.Message())
	if !outcome.OK() {
		return 1
	}
	return 0
}

// readLine returns the next line without its terminator; EOF yields what was read
func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
