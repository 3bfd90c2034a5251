package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	mode string // "server" | "client" | "trace"

	listenAddr string
	banner     string
	udlPasswd  string

	clientHost   string
	serialDevice string
	serialBaud   int
	memFile      string
	topics       string
	dump         bool

	tracePath   string
	traceFormat string // "ser2net" | "pcapng"
	tracePort   int
	verbose     bool

	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	mode := flag.String("mode", "server", "Operating mode: server|client|trace")
	listen := flag.String("listen", ":10001", "UDL TCP listen address (server mode)")
	banner := flag.String("banner", "Elite 24    V4.02.01", "Panel banner to identify as (server mode)")
	udlPasswd := flag.String("udl-password", "1234", "UDL password (server mode: informational only; client mode: sent at login)")
	clientHost := flag.String("host", "localhost:10001", "Panel host:port to connect to (client mode)")
	serialDevice := flag.String("serial-device", "", "Serial device to dial directly instead of -host (client mode)")
	serialBaud := flag.Int("serial-baud", 9600, "Baud rate for -serial-device")
	memFile := flag.String("mem", "", "Persisted panel file to save after reading (client mode)")
	topics := flag.String("topics", "", "Comma-separated topics to read (client mode); empty reads common registers only")
	dump := flag.Bool("dump", false, "Hexdump mem/io to stdout after reading (client mode)")
	tracePath := flag.String("trace", "", "Trace file to ingest (trace mode)")
	traceFormat := flag.String("trace-format", "ser2net", "Trace file format: ser2net|pcapng")
	tracePort := flag.Int("trace-port", 10001, "UDL TCP port used to classify pcapng segment direction")
	verbose := flag.Bool("verbose", false, "Print compacted observed mem-ranges at the end of trace ingest")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	mdnsEnable := flag.Bool("mdns-enable", false, "Advertise the server over mDNS (server mode)")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default udld-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.mode = *mode
	cfg.listenAddr = *listen
	cfg.banner = *banner
	cfg.udlPasswd = *udlPasswd
	cfg.clientHost = *clientHost
	cfg.serialDevice = *serialDevice
	cfg.serialBaud = *serialBaud
	cfg.memFile = *memFile
	cfg.topics = *topics
	cfg.dump = *dump
	cfg.tracePath = *tracePath
	cfg.traceFormat = *traceFormat
	cfg.tracePort = *tracePort
	cfg.verbose = *verbose
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.mode {
	case "server", "client", "trace":
	default:
		return fmt.Errorf("invalid mode: %s", c.mode)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.mode == "trace" {
		if c.tracePath == "" {
			return errors.New("trace mode requires -trace")
		}
		switch c.traceFormat {
		case "ser2net", "pcapng":
		default:
			return fmt.Errorf("invalid trace-format: %s", c.traceFormat)
		}
	}
	return nil
}

// applyEnvOverrides maps UDLD_* environment variables to config fields
// unless a corresponding flag was explicitly set (flag wins over env).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["mode"]; !ok {
		if v, ok := get("UDLD_MODE"); ok && v != "" {
			c.mode = v
		}
	}
	if _, ok := set["listen"]; !ok {
		if v, ok := get("UDLD_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["banner"]; !ok {
		if v, ok := get("UDLD_BANNER"); ok && v != "" {
			c.banner = v
		}
	}
	if _, ok := set["udl-password"]; !ok {
		if v, ok := get("UDLD_UDL_PASSWORD"); ok && v != "" {
			c.udlPasswd = v
		}
	}
	if _, ok := set["host"]; !ok {
		if v, ok := get("UDLD_HOST"); ok && v != "" {
			c.clientHost = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("UDLD_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("UDLD_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("UDLD_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["trace-port"]; !ok {
		if v, ok := get("UDLD_TRACE_PORT"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.tracePort = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid UDLD_TRACE_PORT: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("UDLD_MDNS_ENABLE"); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.mdnsEnable = b
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("UDLD_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
