package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/khoahotran/portfolio-delivery/pkg/logger"
	"github.com/khoahotran/portfolio-delivery/pkg/profilesync"
)

//go:embed fallback.json
var bundledFallback []byte

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Resolve the profile the site would render",
	Long:  "Runs the profile sync client against the API candidates and prints the merged profile, or the fallback when no candidate answers.",
	RunE:  runSync,
}

var (
	syncOrigin   string
	syncFallback string
	syncOnce     bool
	syncTimeout  time.Duration
	syncVerbose  bool
)

func init() {
	syncCmd.Flags().StringVar(&syncOrigin, "origin", "", "Page origin for the same-origin candidate")
	syncCmd.Flags().StringVar(&syncFallback, "fallback", "", "Path to a fallback profile JSON (default bundled snapshot)")
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "Make a single pass without retries")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", time.Minute, "Give up retrying after this long")
	syncCmd.Flags().BoolVarP(&syncVerbose, "verbose", "v", false, "Log candidate attempts")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	raw := bundledFallback
	if syncFallback != "" {
		content, err := os.ReadFile(syncFallback)
		if err != nil {
			return fmt.Errorf("failed to read fallback file: %w", err)
		}
		raw = content
	}
	fallback, err := profilesync.ParseSnapshot(raw)
	if err != nil {
		return fmt.Errorf("invalid fallback: %w", err)
	}

	log := logger.NewNop()
	if syncVerbose {
		log = logger.NewZapLogger("development")
	}

	client := profilesync.New(fallback,
		profilesync.WithBaseURL(apiBaseURL),
		profilesync.WithOrigin(syncOrigin),
		profilesync.WithLogger(log),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
	defer cancel()

	if syncOnce {
		err = client.Once(ctx)
	} else {
		err = client.Run(ctx)
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "no candidate answered, showing fallback: %v\n", err)
	}

	snapshot := client.Snapshot()
	out := struct {
		State     string               `json:"state"`
		ResumeURL string               `json:"resumeUrl"`
		Profile   profilesync.Snapshot `json:"profile"`
	}{
		State:     client.State().String(),
		ResumeURL: profilesync.ResumeURL(snapshot, apiBaseURL),
		Profile:   snapshot,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
