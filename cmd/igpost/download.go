package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igpost/pkg/logger"
	"igpost/pkg/metadata"
	"igpost/pkg/scraper"
	"igpost/pkg/ui"
)

var (
	outputDir     string
	concurrent    int
	rateLimit     int
	skipVideos    bool
	skipImages    bool
	saveMetadata  bool
	downloadRetry int
	downloadDelay int
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download the media of a post",
	Long: `Look up a public post and save every image and video it contains.

Files are named <shortcode>_<NN>.jpg or .mp4. Files already present in the
output directory are skipped, so interrupted downloads can simply be rerun.`,
	Example: `  # Download into ./downloads
  igpost download https://www.instagram.com/p/C8x1Y2zABCD/

  # Only images, with a metadata file, four at a time
  igpost download https://www.instagram.com/p/C8x1Y2zABCD/ -o ./photos --skip-videos --save-metadata --concurrent 4`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ./downloads)")
	downloadCmd.Flags().IntVar(&concurrent, "concurrent", 3, "number of concurrent downloads")
	downloadCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute, 0 disables limiting")
	downloadCmd.Flags().BoolVar(&skipVideos, "skip-videos", false, "do not download videos")
	downloadCmd.Flags().BoolVar(&skipImages, "skip-images", false, "do not download images")
	downloadCmd.Flags().BoolVar(&saveMetadata, "save-metadata", false, "write post metadata next to the media")
	downloadCmd.Flags().IntVar(&downloadRetry, "retries", scraper.DefaultRetries, "retries after a throttled lookup")
	downloadCmd.Flags().IntVar(&downloadDelay, "delay", 1000, "initial retry delay in milliseconds")
}

func runDownload(cmd *cobra.Command, args []string) error {
	flags := retryFlags(cmd, downloadRetry, downloadDelay)
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if cmd.Flags().Changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if cmd.Flags().Changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if cmd.Flags().Changed("skip-videos") {
		flags["skip-videos"] = skipVideos
	}
	if cmd.Flags().Changed("skip-images") {
		flags["skip-images"] = skipImages
	}
	if cmd.Flags().Changed("save-metadata") {
		flags["save-metadata"] = saveMetadata
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	s, err := scraper.New(cfg)
	if err != nil {
		return err
	}

	summary, err := s.Download(cmd.Context(), args[0], "")
	if err != nil {
		logger.WithError(err).WithField("url", args[0]).Error("Download failed")
		return err
	}

	ui.PrintInfo("Post", summary.Shortcode)
	if summary.Result.Caption != "" {
		ui.PrintInfo("Caption", metadata.GetFormattedCaption(summary.Result.Caption, 60))
	}
	ui.PrintInfo("Directory", summary.Dir)
	for _, path := range summary.Files {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if summary.MetadataPath != "" {
		ui.PrintInfo("Metadata", summary.MetadataPath)
	}
	for _, failure := range summary.Errors {
		ui.PrintWarning("Failed", failure)
	}

	msg := fmt.Sprintf("saved %d, skipped %d, filtered %d, failed %d", summary.Saved, summary.Skipped, summary.Filtered, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed (%s)", summary.Failed, len(summary.Result.Media), msg)
	}
	ui.PrintSuccess(msg)
	return nil
}
