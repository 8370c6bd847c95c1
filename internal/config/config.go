// Package config loads the line-oriented key=value configuration file
// format named in spec §6, and holds the defaults named in spec §6
// "Defaults". Shaped after the pack's wendal-yourtestsrv/internal/config
// convention of a dedicated Load(path)/Default() pair, kept to the spec's
// flat key=value wire format rather than that example's JSON.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every key spec §6 names, defaulted per spec §6
// "Defaults" plus the original source's constants (SPEC_FULL.md §10).
type Config struct {
	BrokerIP           string
	BrokerPort         int
	BrokerUser         string
	BrokerPasswd       string
	ClientID           string
	Topic              string
	QoS                int
	Retain             bool
	KeepAlive          int
	WillFlag           bool
	WillQoS            int
	WillRetain         bool
	CleanSession       bool
	WillTopic          string
	WillMsg            string
	Sequence           int
	OutputFile         string
	InputFile          string
	ClientLoop         bool
	PublishFirstOnline bool
	PersistConnTime    int
	FileTrans          bool
}

// Default returns the built-in defaults (spec §6 "Defaults";
// SPEC_FULL.md §10 original-source constants for fields spec.md leaves
// implicit).
func Default() *Config {
	return &Config{
		BrokerIP:     "127.0.0.1",
		BrokerPort:   1883,
		BrokerUser:   "usertest",
		BrokerPasswd: "passwdtest",
		ClientID:     "mqtt",
		Topic:        "mqtt/test",
		QoS:          0,
		KeepAlive:    300,
		WillTopic:    "mqtt/test",
		WillMsg:      "pub:offline",
		Sequence:     1,
		OutputFile:   "output/recv_file",
	}
}

// keyHandlers maps each recognised config-file key (spec §6) onto a setter.
// Unknown keys are logged and skipped, per the original source's tolerant
// scanner (SPEC_FULL.md §10).
func (c *Config) keyHandlers() map[string]func(string) error {
	return map[string]func(string) error{
		"broker_ip":             func(v string) error { c.BrokerIP = v; return nil },
		"broker_port":           intSetter(&c.BrokerPort),
		"broker_user":           func(v string) error { c.BrokerUser = v; return nil },
		"broker_passwd":         func(v string) error { c.BrokerPasswd = v; return nil },
		"client_id":             func(v string) error { c.ClientID = v; return nil },
		"topic":                 func(v string) error { c.Topic = v; return nil },
		"qos":                   intSetter(&c.QoS),
		"retain":                boolSetter(&c.Retain),
		"alive":                 intSetter(&c.KeepAlive),
		"will_flag":             boolSetter(&c.WillFlag),
		"will_qos":              intSetter(&c.WillQoS),
		"will_retain":           boolSetter(&c.WillRetain),
		"clean_session":         boolSetter(&c.CleanSession),
		"will_topic":            func(v string) error { c.WillTopic = v; return nil },
		"will_msg":              func(v string) error { c.WillMsg = v; return nil },
		"sequence":              intSetter(&c.Sequence),
		"output_file":           func(v string) error { c.OutputFile = v; return nil },
		"input_file":            func(v string) error { c.InputFile = v; return nil },
		"client_loop":           boolSetter(&c.ClientLoop),
		"publish_first_online":  boolSetter(&c.PublishFirstOnline),
		"persist_conn_time":     intSetter(&c.PersistConnTime),
		"file_trans":            boolSetter(&c.FileTrans),
	}
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(v string) error {
		switch v {
		case "1", "true", "yes":
			*dst = true
		case "0", "false", "no":
			*dst = false
		default:
			return fmt.Errorf("not a boolean: %q", v)
		}
		return nil
	}
}

// UnknownKey is reported (not fatal) for every unrecognised key=value line
// (spec §6, SPEC_FULL.md §10).
type UnknownKey struct {
	Line int
	Key  string
}

// Load parses a key=value file, starting from Default() and applying every
// recognised key found. Unknown keys are collected (not fatal) and
// returned alongside the config for the caller to log.
func Load(path string) (*Config, []UnknownKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cfg := Default()
	handlers := cfg.keyHandlers()
	var unknown []UnknownKey

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		handler, known := handlers[key]
		if !known {
			unknown = append(unknown, UnknownKey{Line: lineNo, Key: key})
			continue
		}
		if err := handler(value); err != nil {
			return nil, unknown, fmt.Errorf("line %d: key %q: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, unknown, err
	}
	return cfg, unknown, nil
}
