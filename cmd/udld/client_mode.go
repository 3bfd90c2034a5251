package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shuckc/pytexalarm/internal/persist"
	"github.com/shuckc/pytexalarm/internal/planner"
	"github.com/shuckc/pytexalarm/internal/udlclient"
)

var topicNames = map[string]planner.Topic{
	"zones":     planner.ZONES,
	"areas":     planner.AREAS,
	"global":    planner.GLOBAL,
	"keypads":   planner.KEYPADS,
	"expanders": planner.EXPANDERS,
	"outputs":   planner.OUTPUTS,
	"comms":     planner.COMMS,
	"users":     planner.USERS,
	"logs":      planner.LOGS,
}

func parseTopics(s string) []planner.Topic {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var topics []planner.Topic
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if t, ok := topicNames[name]; ok {
			topics = append(topics, t)
		}
	}
	return topics
}

func runClient(ctx context.Context, cfg *appConfig, l *slog.Logger) {
	var c *udlclient.Client
	var err error
	if cfg.serialDevice != "" {
		c, err = udlclient.DialSerial(ctx, cfg.serialDevice, cfg.serialBaud, 5*time.Second)
		if err != nil {
			l.Error("dial_failed", "device", cfg.serialDevice, "error", err)
			os.Exit(1)
		}
	} else {
		c, err = udlclient.Dial(ctx, cfg.clientHost)
		if err != nil {
			l.Error("dial_failed", "host", cfg.clientHost, "error", err)
			os.Exit(1)
		}
	}
	defer c.Close()

	if err := c.Login(cfg.udlPasswd); err != nil {
		l.Error("login_failed", "error", err)
		os.Exit(1)
	}
	l.Info("login_ok", "banner", c.Panel.Banner, "serial", c.Panel.Serial)

	topics := parseTopics(cfg.topics)
	if err := c.ReadTopics(topics); err != nil {
		l.Error("read_topics_failed", "error", err)
		os.Exit(1)
	}
	l.Info("read_topics_done", "ranges_applied", len(c.Panel.MemRanges))

	if cfg.dump {
		fmt.Println(c.Panel.String())
	}

	if cfg.memFile == "" {
		return
	}
	f, err := os.Create(cfg.memFile)
	if err != nil {
		l.Error("mem_file_create_failed", "file", cfg.memFile, "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := persist.Save(f, c.Panel); err != nil {
		l.Error("mem_file_save_failed", "file", cfg.memFile, "error", err)
		os.Exit(1)
	}
	l.Info("mem_file_saved", "file", cfg.memFile)
}
