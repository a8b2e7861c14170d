// Command amqpdump connects to an AMQP 1.0 peer and prints every message
// it receives from a source address, accepting each one when the
// client.auto_accept config option is set.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/lanternmq/amqp1/client"
	"github.com/lanternmq/amqp1/config"
	"github.com/lanternmq/amqp1/observability"
	"github.com/lanternmq/amqp1/sasl"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		log.Fatal("usage: amqpdump <source-address> [config.yaml]")
	}
	source := os.Args[1]
	confPath := ""
	if len(os.Args) == 3 {
		confPath = os.Args[2]
	}

	cfg, err := loadConfig(confPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := buildLogger(cfg.Log)
	logger.Info("starting amqpdump", "addr", cfg.Transport.Addr, "source", source)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	stopMetrics, err := observability.InitMetrics(observability.MetricsConfig{
		Enabled: cfg.Observability.MetricsAddr != "",
		Addr:    cfg.Observability.MetricsAddr,
	}, logger)
	if err != nil {
		logger.Error("init metrics", "err", err)
		os.Exit(1)
	}
	defer stopMetrics(context.Background())

	stopTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:      cfg.Observability.TracingEnabled,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		Insecure:     true,
		Resource:     observability.ResourceConfig{ServiceName: "amqpdump"},
	}, logger)
	if err != nil {
		logger.Error("init tracing", "err", err)
		os.Exit(1)
	}
	defer stopTracing(context.Background())

	opts, err := clientOptions(cfg, logger)
	if err != nil {
		logger.Error("build client options", "err", err)
		os.Exit(1)
	}

	conn, err := client.Dial(ctx, cfg.Transport.Addr, opts...)
	if err != nil {
		logger.Error("dial", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	sess, err := conn.NewSession()
	if err != nil {
		logger.Error("open session", "err", err)
		os.Exit(1)
	}

	recv, err := sess.NewReceiver(ctx, source, cfg.Client.ReceiverCredit)
	if err != nil {
		logger.Error("attach receiver", "err", err)
		os.Exit(1)
	}
	defer recv.Close()

	for {
		d, err := recv.Receive(ctx)
		if err != nil {
			logger.Info("stopping", "err", err)
			return
		}
		fmt.Printf("%s\n", d.Payload())
		if cfg.Client.AutoAccept {
			if err := recv.Accept(d); err != nil {
				logger.Error("accept delivery", "err", err)
			}
		}
	}
}

func clientOptions(cfg *config.Config, logger *slog.Logger) ([]client.Option, error) {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithMaxFrameSize(cfg.Transport.MaxFrame),
		client.WithIdleTimeout(cfg.Client.IdleTimeout),
		client.WithDialTimeout(cfg.Transport.DialTimeout),
		client.WithReceiverCredit(cfg.Client.ReceiverCredit),
		client.WithTracing(cfg.Observability.TracingEnabled),
	}
	if cfg.Client.ContainerID != "" {
		opts = append(opts, client.WithContainerID(cfg.Client.ContainerID))
	}
	if cfg.Client.Hostname != "" {
		opts = append(opts, client.WithHostname(cfg.Client.Hostname))
	}

	selector, err := saslSelector(cfg)
	if err != nil {
		return nil, err
	}
	if selector != nil {
		opts = append(opts, client.WithSASL(selector))
	}

	switch cfg.Transport.Kind {
	case "tls":
		tlsConf, err := cfg.Transport.TLS.Parse()
		if err != nil {
			return nil, fmt.Errorf("parse tls config: %w", err)
		}
		opts = append(opts, client.WithTLS(tlsConf))
	case "websocket":
		opts = append(opts, client.WithWebSocket(nil))
	}

	return opts, nil
}

func saslSelector(cfg *config.Config) (sasl.Selector, error) {
	var candidates []sasl.Mechanism
	for _, name := range cfg.SASL.Mechanisms {
		switch strings.ToUpper(name) {
		case "ANONYMOUS":
			candidates = append(candidates, sasl.Anonymous{})
		case "PLAIN":
			candidates = append(candidates, sasl.Plain{
				Username: cfg.SASL.Username,
				Password: cfg.SASL.Password,
			})
		default:
			return nil, fmt.Errorf("unsupported sasl mechanism %q", name)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return sasl.PreferenceOrder(candidates...), nil
}

func buildLogger(cfg config.LogConfig) *slog.Logger {
	level := parseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLogLevel(name string) slog.Level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(explicitPath string) (*config.Config, error) {
	paths := []string{explicitPath}
	if explicitPath == "" {
		paths = []string{"./amqpdump.yaml", "conf/amqpdump.yaml", "config/amqpdump.yaml"}
	}
	return config.Load(paths...)
}
