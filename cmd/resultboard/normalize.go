package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/resultboard/normalize"
)

func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Print the canonical form of a result payload",
		Long: `Read a result payload and print its canonical JSON form.

The input is read from the file argument, or from stdin when the argument
is omitted or "-". Input that is not JSON is treated as a plain string,
so CSV text and data URLs can be piped in directly.

Without --type the payload type is detected from its shape.
With --strict the payload must also pass the shape check applied to
restored history.

Example:
  resultboard normalize --type table rows.json
  cat report.csv | resultboard normalize --type csv
  resultboard normalize chart.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNormalize,
	}

	cmd.Flags().StringP("type", "t", "", "payload type (chart, image, table, csv, metric, insight, file)")
	cmd.Flags().Bool("strict", false, "reject payloads that fail the restore shape check")
	return cmd
}

// normalizeOutput is the printed result.
type normalizeOutput struct {
	Type     normalize.Type    `json:"type"`
	Detected bool              `json:"detected,omitempty"`
	Data     normalize.Payload `json:"data"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var raw any = json.RawMessage(data)
	if !json.Valid(data) {
		raw = string(data)
	}

	out := normalizeOutput{}
	if tag, _ := cmd.Flags().GetString("type"); tag != "" {
		t, ok := normalize.ParseType(tag)
		if !ok {
			return fmt.Errorf("unknown type %q", tag)
		}
		out.Type = t
	} else {
		t, ok := normalize.DetectDataType(raw)
		if !ok {
			return fmt.Errorf("could not detect the payload type, pass --type")
		}
		out.Type, out.Detected = t, true
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		if err := normalize.ValidateShape(out.Type, raw); err != nil {
			return err
		}
	}

	out.Data, err = normalize.Normalize(out.Type, raw)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readInput returns the contents of args[0], or stdin for no argument or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}
