// Command dronectl plans delivery routes offline: it loads or generates
// scenarios, runs the genetic optimizer and prints the report.
package main

import (
    "context"
    "errors"
    "fmt"
    "io"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    flag "github.com/spf13/pflag"

    "dronenav/internal/buildinfo"
)

var errUsage = errors.New("usage")

const usage = `usage: dronectl <command> [flags]

commands:
  plan <source>...   optimize each scenario and print the report
  generate           write a random scenario
  version            print build information

sources: a directory of text files, a YAML bundle, an http(s) URL,
"random" or "random:<seed>"
`

func main() {
    _ = godotenv.Load()
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
    stop()
    switch {
    case err == nil:
    case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
        os.Exit(2)
    default:
        fmt.Fprintln(os.Stderr, "dronectl:", err)
        os.Exit(1)
    }
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
    if len(args) == 0 {
        fmt.Fprint(stderr, usage)
        return errUsage
    }
    switch args[0] {
    case "plan":
        return planCmd(ctx, args[1:], stdout, stderr)
    case "generate":
        return generateCmd(args[1:], stdout, stderr)
    case "version":
        fmt.Fprintln(stdout, buildinfo.String())
        return nil
    case "help", "-h", "--help":
        fmt.Fprint(stdout, usage)
        return nil
    default:
        fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
        return errUsage
    }
}
