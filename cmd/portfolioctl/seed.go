package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khoahotran/portfolio-delivery/pkg/profilesync"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the current profile document",
	Long:  "Posts a profile JSON document to /api/seed. Existing documents are cleared unless --preserve is set.",
	RunE:  runSeed,
}

var (
	seedFile     string
	seedPreserve bool
)

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to profile JSON file (required)")
	seedCmd.Flags().BoolVar(&seedPreserve, "preserve", false, "Keep existing documents instead of clearing them")

	if err := seedCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	content, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}
	if _, err := profilesync.ParseSnapshot(content); err != nil {
		return fmt.Errorf("invalid profile file: %w", err)
	}
	if seedToken == "" {
		return fmt.Errorf("seed token is required (--token or SEED_TOKEN)")
	}

	endpoint := strings.TrimRight(apiBaseURL, "/") + "/api/seed"
	if seedPreserve {
		endpoint += "?preserve=true"
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-seed-token", seedToken)

	body, err := doRequest(req)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}

func doRequest(req *http.Request) ([]byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
