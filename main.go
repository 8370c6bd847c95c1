package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mqtt-tools/go-mqtt-cli/actions/publish"
	"github.com/mqtt-tools/go-mqtt-cli/actions/subscribe"
)

func main() {
	cmd := &cli.Command{
		Name:    "go-mqtt-cli",
		Usage:   "MQTT 3.1.1 publish/subscribe client",
		Version: "0.0.1-prerelease",
		Action: func(context.Context, *cli.Command) error {
			fmt.Println("go-mqtt-cli - use 'go-mqtt-cli help' for available commands")
			return nil
		},
		Commands: []*cli.Command{
			publish.Command,
			subscribe.Command,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
