package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/meenmo/lmm/cmd/lmm/internal/calibrate"
	"github.com/meenmo/lmm/cmd/lmm/internal/factors"
	"github.com/meenmo/lmm/cmd/lmm/internal/price"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "price":
		return price.Run(args[1:], stdout, stderr)
	case "calibrate":
		return calibrate.Run(args[1:], stdout, stderr)
	case "factors":
		return factors.Run(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lmm <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  price      Monte Carlo caplet and swaption prices with analytic comparison")
	fmt.Fprintln(w, "  calibrate  Calibrate volatility and correlation to a swaption battery")
	fmt.Fprintln(w, "  factors    Factor reduction error over a correlation decay sweep")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run `lmm <command> -h` for command-specific help.")
}
