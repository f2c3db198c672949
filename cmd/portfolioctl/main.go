// Package main implements portfolioctl, the admin CLI for the portfolio API.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/khoahotran/portfolio-delivery/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "portfolioctl",
	Short: "Admin CLI for the portfolio content API",
	Long:  "portfolioctl seeds the profile document, uploads resumes and previews what the site would render.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiBaseURL == "" {
			apiBaseURL = cfg.Client.APIBaseURL
		}
		if apiBaseURL == "" {
			apiBaseURL = "http://localhost:" + cfg.App.Port
		}
		if seedToken == "" {
			seedToken = cfg.Seed.Token
		}
		return nil
	},
	SilenceUsage: true,
}

var (
	apiBaseURL string
	seedToken  string

	httpClient = &http.Client{Timeout: 5 * time.Minute}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api", "", "API base URL (default API_BASE_URL or http://localhost:<port>)")
	rootCmd.PersistentFlags().StringVar(&seedToken, "token", "", "Seed token (default SEED_TOKEN)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
