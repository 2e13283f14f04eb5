package main

import (
	"time"

	"github.com/spf13/cobra"

	"igpost/pkg/logger"
	"igpost/pkg/metadata"
	"igpost/pkg/scraper"
)

var (
	lookupRetries int
	lookupDelayMS int
	lookupFormat  string
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <url>",
	Short: "Print the media and details of a post",
	Long: `Look up a public post and print its normalized form to stdout.

Throttled (429) and forbidden (403) responses are retried, waiting --delay
milliseconds before the first retry and doubling the wait each time.`,
	Example: `  # Print a post as JSON
  igpost lookup https://www.instagram.com/p/C8x1Y2zABCD/

  # Fail fast and print YAML
  igpost lookup https://www.instagram.com/reel/C8x1Y2zABCD/ --retries 0 --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().IntVar(&lookupRetries, "retries", scraper.DefaultRetries, "retries after a throttled attempt")
	lookupCmd.Flags().IntVar(&lookupDelayMS, "delay", int(scraper.DefaultDelay/time.Millisecond), "initial retry delay in milliseconds")
	lookupCmd.Flags().StringVarP(&lookupFormat, "format", "f", "", "output format (json, yaml)")
}

// retryFlags collects the retry flags the user set explicitly
func retryFlags(cmd *cobra.Command, retries, delayMS int) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("retries") {
		flags["retries"] = retries
	}
	if cmd.Flags().Changed("delay") {
		flags["delay"] = time.Duration(delayMS) * time.Millisecond
	}
	return flags
}

func runLookup(cmd *cobra.Command, args []string) error {
	flags := retryFlags(cmd, lookupRetries, lookupDelayMS)
	if lookupFormat != "" {
		flags["format"] = lookupFormat
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	s, err := scraper.New(cfg)
	if err != nil {
		return err
	}

	result, err := s.Lookup(cmd.Context(), args[0])
	if err != nil {
		logger.WithError(err).WithField("url", args[0]).Error("Lookup failed")
		return err
	}

	return metadata.Encode(cmd.OutOrStdout(), result, cfg.Output.Format)
}
