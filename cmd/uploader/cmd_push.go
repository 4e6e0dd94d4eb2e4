package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-uploader/internal/models"
)

func newPushCmd() *cobra.Command {
	var (
		target  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "push <file|->",
		Short: "Send a metric JSON document to a running server",
		Long: `Read a Telegraf JSON metric (or batch) from a file, or stdin with "-",
check that it decodes, and POST it to a running server. Exits non-zero unless
every upload succeeded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if _, err := models.DecodeMetrics(body); err != nil {
				return fmt.Errorf("invalid metric JSON: %w", err)
			}
			return push(cmd.OutOrStdout(), &http.Client{Timeout: timeout}, target, body)
		},
	}
	cmd.Flags().StringVar(&target, "url", "http://localhost:8080/metrics", "ingest endpoint")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// push posts body and prints the server's message. Any status other than 200
// is returned as an error carrying that message.
func push(out io.Writer, hc *http.Client, target string, body []byte) error {
	resp, err := hc.Post(target, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post %s: %w", target, err)
	}
	defer resp.Body.Close()

	var ur models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	fmt.Fprintf(out, "%d %s\n", resp.StatusCode, ur.Message)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push failed with status %d", resp.StatusCode)
	}
	return nil
}
