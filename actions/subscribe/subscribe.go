// Package subscribe implements the subscriber CLI command
// (SPEC_FULL.md A7), grounded on the original source's ecli_mqtt_sub.c
// control flow (connect, subscribe, read-loop with persist_conn_time
// reconnect-and-resubscribe on a read timeout) and the teacher's
// errgroup-coordinated goroutine style (golang.org/x/sync usage pattern
// in its CLI actions), adapted here to run the keep-alive ticker
// alongside the blocking receive loop without a signal handler (spec §9
// REDESIGN FLAG; SPEC_FULL.md §5).
package subscribe

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/mqtt-tools/go-mqtt-cli/client"
	"github.com/mqtt-tools/go-mqtt-cli/internal/config"
	"github.com/mqtt-tools/go-mqtt-cli/internal/logging"
	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
	"github.com/mqtt-tools/go-mqtt-cli/internal/payload"
)

// Command is the subscriber CLI command. Flag letters match spec §6
// verbatim.
var Command = &cli.Command{
	Name:  "subscribe",
	Usage: "Subscribe to an MQTT broker topic and print or save delivered messages",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "broker", Aliases: []string{"b"}, Usage: "Broker IP"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Broker port"},
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Broker username"},
		&cli.StringFlag{Name: "password", Aliases: []string{"k"}, Usage: "Broker password"},
		&cli.StringFlag{Name: "id", Aliases: []string{"i"}, Usage: "Client ID"},
		&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Topic to subscribe"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path (with -f)"},
		&cli.IntFlag{Name: "alive", Aliases: []string{"a"}, Usage: "Keep-alive seconds"},
		&cli.IntFlag{Name: "will-qos", Aliases: []string{"Q"}, Usage: "Will QoS"},
		&cli.StringFlag{Name: "will-topic", Aliases: []string{"T"}, Usage: "Will topic"},
		&cli.StringFlag{Name: "will-message", Aliases: []string{"M"}, Usage: "Will message"},
		&cli.IntFlag{Name: "wait", Aliases: []string{"P"}, Usage: "Seconds to wait for broker connection (-1 = infinite)"},
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Configuration file path"},
		&cli.BoolFlag{Name: "loop", Aliases: []string{"l"}, Usage: "Read messages in a loop"},
		&cli.BoolFlag{Name: "file", Aliases: []string{"f"}, Usage: "Receive payloads as files"},
		&cli.BoolFlag{Name: "will-retain", Aliases: []string{"R"}, Usage: "Set the will-retain flag"},
		&cli.BoolFlag{Name: "will", Aliases: []string{"W"}, Usage: "Attach a will to CONNECT"},
		&cli.BoolFlag{Name: "clean-session", Aliases: []string{"C"}, Usage: "Set clean-session"},
		&cli.BoolFlag{Name: "first-online", Aliases: []string{"O"}, Usage: "Publish a first retained online message (no effect on subscribe)"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Verbose logging"},
	},
	Action: run,
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Default()
	logger := logging.New(cmd.Bool("verbose"))
	if path := cmd.String("config"); path != "" {
		loaded, unknown, err := config.Load(path)
		if err != nil {
			return exitErr(err)
		}
		cfg = loaded
		for _, u := range unknown {
			logger.Warn("unrecognised config key", "line", u.Line, "key", u.Key)
		}
	}
	applyFlags(cfg, cmd)

	if cfg.ClientID == "" {
		cfg.ClientID = client.GenerateClientID()
	}
	if cfg.BrokerPasswd == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "broker password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err == nil {
			cfg.BrokerPasswd = string(pw)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		err := runOnce(ctx, cfg, logger)
		if err == nil {
			return nil
		}
		if mqtterr.As(err, mqtterr.KindReadTimeout) && cfg.PersistConnTime != 0 {
			logger.Warn("read timeout, reconnecting", "persist_conn_time", cfg.PersistConnTime)
			continue
		}
		return exitErr(err)
	}
}

// runOnce dials, connects, subscribes, and reads until a fatal error
// occurs, until the first message is delivered when -l is not set, or,
// with -l, until the context is cancelled; cancellation is checked only
// between delivered messages. Mirrors ecli_mqtt_sub.c's single
// connect-subscribe-read cycle (SPEC_FULL.md §10); the caller's loop
// implements the retry-on-timeout behaviour the original achieves with a
// nested do/while.
func runOnce(ctx context.Context, cfg *config.Config, logger interface {
	Warn(string, ...any)
	Info(string, ...any)
}) error {
	addr := fmt.Sprintf("%s:%d", cfg.BrokerIP, cfg.BrokerPort)
	conn, err := client.Dial(addr, cfg.PersistConnTime)
	if err != nil {
		return err
	}
	if cfg.KeepAlive > 0 {
		if err := conn.SetRecvTimeout(time.Duration(cfg.KeepAlive) * time.Second); err != nil {
			return err
		}
	}
	logger.Info("connected", "broker", addr)

	var will *client.Will
	if cfg.WillFlag {
		will = &client.Will{Topic: cfg.WillTopic, Payload: []byte(cfg.WillMsg), QoS: byte(cfg.WillQoS), Retain: cfg.WillRetain}
	}
	c := client.New(conn, client.Options{
		ClientID:     cfg.ClientID,
		Username:     cfg.BrokerUser,
		Password:     cfg.BrokerPasswd,
		HasUsername:  cfg.BrokerUser != "",
		HasPassword:  cfg.BrokerPasswd != "",
		Will:         will,
		CleanSession: cfg.CleanSession,
		KeepAlive:    time.Duration(cfg.KeepAlive) * time.Second,
		Sequence:     uint16(cfg.Sequence),
	})

	if err := c.Connect(); err != nil && !mqtterr.As(err, mqtterr.KindSessionPresent) {
		return err
	}
	defer c.Disconnect()

	if err := c.Subscribe(cfg.Topic); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	readCtx, cancelRead := context.WithCancel(gctx)
	defer cancelRead()

	g.Go(func() error {
		defer cancelRead()
		for {
			msg, err := c.ReadInbound()
			if err != nil {
				return err
			}
			if err := deliver(cfg, msg); err != nil {
				logger.Warn("delivery failed", "err", err)
			}
			if !cfg.ClientLoop {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
		}
	})
	g.Go(func() error {
		select {
		case <-readCtx.Done():
			return nil
		case err := <-c.KeepAliveErrs():
			return err
		}
	})

	return g.Wait()
}

func deliver(cfg *config.Config, msg *client.InboundMessage) error {
	if cfg.FileTrans {
		return payload.FileSink{Path: cfg.OutputFile}.Deliver(msg.Topic, msg.Payload, msg.QoS)
	}
	fmt.Printf("topic=%s qos=%d: %s\n", msg.Topic, msg.QoS, msg.Payload)
	return nil
}

func applyFlags(cfg *config.Config, cmd *cli.Command) {
	if cmd.IsSet("broker") {
		cfg.BrokerIP = cmd.String("broker")
	}
	if cmd.IsSet("port") {
		cfg.BrokerPort = int(cmd.Int("port"))
	}
	if cmd.IsSet("user") {
		cfg.BrokerUser = cmd.String("user")
	}
	if cmd.IsSet("password") {
		cfg.BrokerPasswd = cmd.String("password")
	}
	if cmd.IsSet("id") {
		cfg.ClientID = cmd.String("id")
	}
	if cmd.IsSet("topic") {
		cfg.Topic = cmd.String("topic")
	}
	if cmd.IsSet("output") {
		cfg.OutputFile = cmd.String("output")
	}
	if cmd.IsSet("alive") {
		cfg.KeepAlive = int(cmd.Int("alive"))
	}
	if cmd.IsSet("will-qos") {
		cfg.WillQoS = int(cmd.Int("will-qos"))
	}
	if cmd.IsSet("will-topic") {
		cfg.WillTopic = cmd.String("will-topic")
	}
	if cmd.IsSet("will-message") {
		cfg.WillMsg = cmd.String("will-message")
	}
	if cmd.IsSet("wait") {
		cfg.PersistConnTime = int(cmd.Int("wait"))
	}
	if cmd.Bool("loop") {
		cfg.ClientLoop = true
	}
	if cmd.Bool("file") {
		cfg.FileTrans = true
	}
	if cmd.Bool("will-retain") {
		cfg.WillRetain = true
	}
	if cmd.Bool("will") {
		cfg.WillFlag = true
	}
	if cmd.Bool("clean-session") {
		cfg.CleanSession = true
	}
	if cmd.Bool("first-online") {
		cfg.PublishFirstOnline = true
	}
}

func exitErr(err error) error {
	if merr, ok := err.(*mqtterr.Error); ok {
		return cli.Exit(merr.Error(), merr.Kind.ExitCode())
	}
	return cli.Exit(err.Error(), 1)
}
