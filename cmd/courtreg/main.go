// courtreg loads the court registry open data into SQLite and reports on it.
//
// Usage:
//
//	courtreg migrate
//	courtreg import <file.csv|archive.zip>...
//	courtreg fetch --year 2024 [--max-pages 50] [--chunk-size 1]
//	courtreg report --input numbers.csv --output report.csv [--delimiter ,] [--format csv|xlsx]
//	courtreg serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
