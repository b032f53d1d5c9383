package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

func requireLabCode(cmd *cobra.Command, args []string) error {
	if err := requireExactlyArgs(1, "lab code is required")(cmd, args); err != nil {
		return err
	}
	_, err := parseLabCode(args[0])
	return err
}

func parseLabCode(raw string) (int64, error) {
	code, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("invalid lab code %q", raw)
	}
	return code, nil
}
