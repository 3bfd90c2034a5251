package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shuckc/pytexalarm/internal/identity"
	"github.com/shuckc/pytexalarm/internal/panelmem"
	"github.com/shuckc/pytexalarm/internal/rangealg"
	"github.com/shuckc/pytexalarm/internal/traceingest"
	"github.com/shuckc/pytexalarm/internal/wintex"
)

func runTrace(cfg *appConfig, l *slog.Logger) {
	f, err := os.Open(cfg.tracePath)
	if err != nil {
		l.Error("trace_open_failed", "file", cfg.tracePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	// Generic sizing covers any model's address space, so observed ranges
	// can be recorded before (or without) the banner being identified.
	panel := panelmem.New(identity.Generic)

	applyMemReply := func(msg wintex.Message) []byte {
		if msg.Cmd == 'I' && len(msg.Body) >= 4 {
			base := int(msg.Body[0])<<16 | int(msg.Body[1])<<8 | int(msg.Body[2])
			data := msg.Body[4:]
			if err := panel.ApplyReadResponse(panelmem.RegionMem, base, len(data), data); err != nil {
				l.Debug("trace_mem_apply_skipped", "base", base, "size", len(data), "error", err)
			}
		}
		return nil
	}
	logCmd := func(dir string) wintex.Handler {
		return func(msg wintex.Message) []byte {
			l.Info("trace_frame", "dir", dir, "cmd", string(rune(msg.Cmd)), "len", len(msg.Body))
			return applyMemReply(msg)
		}
	}
	panelSession := wintex.NewSession("term", wintex.RoleObserver, logCmd("term"), nil)
	passwordSession := wintex.NewSession("tcp", wintex.RoleObserver, logCmd("tcp"), nil)

	switch cfg.traceFormat {
	case "pcapng":
		err = traceingest.IngestPcapNG(f, cfg.tracePort, panelSession, passwordSession)
	default:
		err = traceingest.IngestSer2Net(f, panelSession, passwordSession)
	}
	if err != nil {
		l.Error("trace_ingest_failed", "error", err)
		os.Exit(1)
	}
	l.Info("trace_ingest_done", "ranges_observed", len(panel.MemRanges))

	if cfg.verbose {
		compacted := rangealg.Compact(panel.MemRanges)
		fmt.Println("compacted observed mem ranges:")
		for _, r := range compacted {
			fmt.Printf("  base=%d size=%d\n", r.Base, r.Size)
		}
	}
}
