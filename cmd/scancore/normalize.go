package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pentellia/scan-core/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a raw tool result file into findings",
	Long: `Reads a raw scanner result (JSON, or plain text for text-output tools)
and prints the normalized findings and summary as JSON. Use --file - for stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, _ := cmd.Flags().GetString("tool")
		file, _ := cmd.Flags().GetString("file")
		target, _ := cmd.Flags().GetString("target")

		data, err := readInput(cmd, file)
		if err != nil {
			return err
		}

		res := normalize.New(nil).NormalizeTarget(tool, target, asRawJSON(data))
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	normalizeCmd.Flags().String("tool", "", "tool id the result came from")
	normalizeCmd.Flags().String("file", "-", "result file path, or - for stdin")
	normalizeCmd.Flags().String("target", "", "scanned target, used when findings carry no asset")
	_ = normalizeCmd.MarkFlagRequired("tool")
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

// asRawJSON passes JSON through and wraps anything else as a JSON string, so
// plain nmap output can be fed in directly.
func asRawJSON(data []byte) json.RawMessage {
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}
