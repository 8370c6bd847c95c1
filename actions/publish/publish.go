// Package publish implements the publisher CLI command (SPEC_FULL.md A6),
// grounded on the teacher's actions/stories command-tree shape
// (login/stories/messages commands -> here, a single "publish" command)
// and on the original source's ecli_mqtt_pub.c control flow (connect,
// optional first-online retained publish, publish-or-loop, disconnect).
package publish

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/mqtt-tools/go-mqtt-cli/client"
	"github.com/mqtt-tools/go-mqtt-cli/internal/config"
	"github.com/mqtt-tools/go-mqtt-cli/internal/logging"
	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
	"github.com/mqtt-tools/go-mqtt-cli/internal/payload"
)

// Command is the publisher CLI command. Flag letters match spec §6
// verbatim.
var Command = &cli.Command{
	Name:  "publish",
	Usage: "Publish a message to an MQTT broker topic",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "broker", Aliases: []string{"b"}, Usage: "Broker IP"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Broker port"},
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Broker username"},
		&cli.StringFlag{Name: "password", Aliases: []string{"k"}, Usage: "Broker password"},
		&cli.StringFlag{Name: "id", Aliases: []string{"i"}, Usage: "Client ID"},
		&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Topic to publish"},
		&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Message text, or path to file with -f"},
		&cli.IntFlag{Name: "qos", Aliases: []string{"q"}, Usage: "Quality of service"},
		&cli.IntFlag{Name: "alive", Aliases: []string{"a"}, Usage: "Keep-alive seconds"},
		&cli.IntFlag{Name: "will-qos", Aliases: []string{"Q"}, Usage: "Will QoS"},
		&cli.StringFlag{Name: "will-topic", Aliases: []string{"T"}, Usage: "Will topic"},
		&cli.StringFlag{Name: "will-message", Aliases: []string{"M"}, Usage: "Will message"},
		&cli.IntFlag{Name: "wait", Aliases: []string{"P"}, Usage: "Seconds to wait for broker connection (-1 = infinite)"},
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Configuration file path"},
		&cli.BoolFlag{Name: "loop", Aliases: []string{"l"}, Usage: "Publish messages in a loop"},
		&cli.BoolFlag{Name: "file", Aliases: []string{"f"}, Usage: "Treat -m as a file path"},
		&cli.BoolFlag{Name: "retain", Aliases: []string{"r"}, Usage: "Set the retain flag"},
		&cli.BoolFlag{Name: "will-retain", Aliases: []string{"R"}, Usage: "Set the will-retain flag"},
		&cli.BoolFlag{Name: "will", Aliases: []string{"W"}, Usage: "Attach a will to CONNECT"},
		&cli.BoolFlag{Name: "clean-session", Aliases: []string{"C"}, Usage: "Set clean-session"},
		&cli.BoolFlag{Name: "first-online", Aliases: []string{"O"}, Usage: "Publish a first retained online message"},
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

	message := cmd.String("message")
	fileMode := cmd.Bool("file") || cfg.FileTrans
	if fileMode {
		cfg.InputFile = message
	}

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

	addr := fmt.Sprintf("%s:%d", cfg.BrokerIP, cfg.BrokerPort)
	conn, err := client.Dial(addr, cfg.PersistConnTime)
	if err != nil {
		return exitErr(err)
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

	if err := c.Connect(); err != nil {
		if mqtterr.As(err, mqtterr.KindSessionPresent) {
			logger.Warn("session present on connect")
		} else {
			return exitErr(err)
		}
	}

	if cfg.PublishFirstOnline {
		if err := publishOnce(c, cfg, message, fileMode, true); err != nil {
			return exitErr(err)
		}
		time.Sleep(time.Second)
	}

loop:
	for {
		if err := publishOnce(c, cfg, message, fileMode, false); err != nil {
			return exitErr(err)
		}
		if !cfg.ClientLoop {
			break
		}
		select {
		case <-ctx.Done():
			break loop
		case <-time.After(time.Second):
		}
	}

	if err := c.Disconnect(); err != nil {
		return exitErr(err)
	}
	return nil
}

// publishOnce sends one PUBLISH. onlineMessage selects the first-online
// retained publish (-O) path described in SPEC_FULL.md §9: it publishes
// the configured message as a retained message, not an empty payload.
func publishOnce(c *client.Client, cfg *config.Config, message string, fileMode, onlineMessage bool) error {
	retain := cfg.Retain || onlineMessage

	if fileMode {
		return publishFile(c, cfg, retain)
	}

	body, err := payload.LoadText([]byte(message), payload.DefaultMaxTextSize)
	if err != nil {
		return err
	}
	return c.Publish(cfg.Topic, byte(cfg.QoS), retain, body)
}

func publishFile(c *client.Client, cfg *config.Config, retain bool) error {
	reporter := NewChunkReporter(0)
	sized := false
	body, err := payload.LoadFileWithProgress(cfg.InputFile, payload.DefaultMaxFileSize, func(read, total int64) {
		if !sized {
			reporter.bar.SetTotal(total, false)
			sized = true
		}
	})
	if err != nil {
		reporter.Wait()
		return err
	}

	chunks := payload.Chunks(body, payload.DefaultChunkSize)
	for _, chunk := range chunks {
		if err := c.PublishChunk(cfg.Topic, byte(cfg.QoS), retain, chunk); err != nil {
			reporter.Wait()
			return err
		}
		reporter.Advance(len(chunk))
	}
	reporter.Wait()
	return nil
}

// applyFlags overlays any explicitly-set CLI flags onto cfg, which already
// holds either built-in defaults or a loaded config file (spec §6: "CLI
// flags override config-file values").
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
	if cmd.IsSet("qos") {
		cfg.QoS = int(cmd.Int("qos"))
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
	if cmd.Bool("retain") {
		cfg.Retain = true
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
