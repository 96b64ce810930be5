package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/resultboard/config"
	"github.com/jpalmerr/resultboard/internal/bridge"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish an envelope to a running resultboard over NATS",
		Long: `Publish one envelope on the configured NATS subject.

The payload is read from --file (or stdin) and wrapped as
{"type": kind, "payload": ...}. Restore envelopes are sent as requests
and the restore statistics are printed. Use --wait to request a reply
for other kinds.

Kinds: batch, restore, loading, error, clear, switch-session, select-message

Example:
  resultboard send -c config.yaml -k batch -f batch.json
  resultboard send -c config.yaml -k restore -f history.json`,
		Args: cobra.NoArgs,
		RunE: runSend,
	}

	cmd.Flags().StringP("config", "c", "", "path to config file")
	cmd.Flags().StringP("kind", "k", "", "envelope kind (required)")
	cmd.Flags().StringP("file", "f", "-", "payload file, - for stdin")
	cmd.Flags().Bool("wait", false, "wait for a reply")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Bus.Driver != config.DriverNATS {
		return fmt.Errorf("send requires the nats bus driver, config has %q", cfg.Bus.Driver)
	}

	kindFlag, _ := cmd.Flags().GetString("kind")
	kind := bridge.Kind(kindFlag)
	known := false
	for _, k := range bridge.Kinds() {
		if k == kind {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown kind %q", kindFlag)
	}

	file, _ := cmd.Flags().GetString("file")
	payload, err := readInput(cmd, []string{file})
	if err != nil {
		return err
	}
	payload = bytes.TrimSpace(payload)
	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON")
	}

	data, err := json.Marshal(bridge.Envelope{Type: kind, Payload: payload})
	if err != nil {
		return err
	}

	mb, err := config.BuildBus(cfg)
	if err != nil {
		return fmt.Errorf("failed to open bus: %w", err)
	}
	defer mb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wait, _ := cmd.Flags().GetBool("wait")
	if kind != bridge.KindRestore && !wait {
		if err := mb.Publish(ctx, cfg.Bus.Subject, data); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s envelope to %s\n", kind, cfg.Bus.Subject)
		return nil
	}

	reply, err := mb.Request(ctx, cfg.Bus.Subject, data, config.RequestTimeout(cfg))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, reply, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(reply)
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}
