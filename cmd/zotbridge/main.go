// Package main provides zotbridge, an MCP server that translates web pages
// and identifiers into Zotero items and saves them to Zotero.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/zotbridge/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zotbridge: %v\n", err)
		os.Exit(1)
	}
}
