// Package main provides a CLI that verifies the shipment event log and
// reports every invariant violation it finds.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	auditcmd "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/cmd/audit"
)

func main() {
	cfg, err := auditcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[AUDIT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auditcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("audit failed: %v", err)
	}
}
