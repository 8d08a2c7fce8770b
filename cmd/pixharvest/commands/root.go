package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pixharvest/pixharvest/cmd/pixharvest/commands/ui"
	"github.com/pixharvest/pixharvest/internal/config"
	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/drive"
	"github.com/pixharvest/pixharvest/internal/extract"
	"github.com/pixharvest/pixharvest/internal/observability"
	"github.com/pixharvest/pixharvest/internal/pdf"
	"github.com/pixharvest/pixharvest/internal/upload"
)

const version = "1.0.0"

var (
	cfgFile    string
	outputDir  string
	minSize    int
	limit      int
	folderID   string
	uploadOnly bool
	verbose    bool
	noColor    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "pixharvest [flags] <pdf-file>",
	Short: "Extract embedded images from PDF documents, with optional Google Drive upload",
	Long: `pixharvest extracts embedded raster images from a PDF document, filters
them by minimum pixel dimensions, and saves the survivors as PNG files
named page{N}_img{M}.png. With a Drive folder ID it then uploads the
results, skipping files already present in the folder, which makes
interrupted runs resumable.`,
	Version:      version,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "./extracted_images", "output directory for extracted images")
	rootCmd.Flags().IntVarP(&minSize, "min-size", "m", 100, "minimum width AND height in pixels")
	rootCmd.Flags().IntVarP(&limit, "limit", "l", 0, "limit number of images to process (0 = unlimited)")
	rootCmd.Flags().StringVar(&folderID, "drive-folder-id", "", "Google Drive folder ID to upload images to")
	rootCmd.Flags().BoolVar(&uploadOnly, "upload-only", false, "skip extraction, only upload existing images from output-dir")

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log output format (console or json)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	if verbose {
		cfg.Observability.LogLevel = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	ui.Init(noColor, verbose)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ui.Error("interrupt received, shutting down")
		cancel()
	}()

	if uploadOnly {
		return runUploadOnly(ctx, cfg, logger)
	}
	return runExtractAndUpload(ctx, cfg, logger, args)
}

// applyFlagOverrides lets explicitly set flags take precedence over the
// config file and environment.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output-dir") {
		cfg.Extraction.OutputDir = outputDir
	}
	if cmd.Flags().Changed("min-size") {
		cfg.Extraction.MinSize = minSize
	}
	if cmd.Flags().Changed("limit") {
		cfg.Extraction.Limit = limit
	}
	if cmd.Flags().Changed("drive-folder-id") {
		cfg.Drive.FolderID = folderID
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Observability.LogFormat = logFormat
	}
}

func runExtractAndUpload(ctx context.Context, cfg *config.Config, logger *observability.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("PDF file path required")
	}
	pdfPath := args[0]

	startTime := time.Now()

	ui.Section("Extraction")
	ui.Info("PDF file: %s", pdfPath)
	ui.Info("Output directory: %s", cfg.Extraction.OutputDir)
	ui.Newline()

	spin := ui.NewSpinner("Opening PDF...")
	spin.Start()
	reader, err := pdf.Open(pdfPath, logger)
	spin.Stop()
	if err != nil {
		return err
	}
	defer reader.Close()

	svc := extract.NewService(reader, logger, os.Stdout)
	result, err := svc.Run(ctx, extract.Options{
		OutputDir: cfg.Extraction.OutputDir,
		MinSize:   cfg.Extraction.MinSize,
		Limit:     cfg.Extraction.Limit,
	})
	if err != nil {
		return err
	}

	ui.Newline()
	ui.Success("Extracted %d images to %s", len(result.Images), cfg.Extraction.OutputDir)
	if result.Skipped > 0 {
		ui.Warning("Skipped %d undersized or undecodable images", result.Skipped)
	}

	var uploaded *domain.UploadResult
	if cfg.Drive.FolderID != "" {
		// The limit governs extraction only; every extracted file is
		// offered for upload.
		uploaded, err = runUpload(ctx, cfg, logger, result.Paths(), 0)
		if err != nil {
			return err
		}
	}

	printSummary(result, uploaded, time.Since(startTime))
	return nil
}

func runUploadOnly(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	if cfg.Drive.FolderID == "" {
		return fmt.Errorf("--drive-folder-id required with --upload-only")
	}

	info, err := os.Stat(cfg.Extraction.OutputDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("output directory does not exist: %s", cfg.Extraction.OutputDir)
	}

	paths, err := filepath.Glob(filepath.Join(cfg.Extraction.OutputDir, "*.png"))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	ui.Info("Found %d images in %s", len(paths), cfg.Extraction.OutputDir)

	startTime := time.Now()

	// Without an extraction phase the limit caps uploads instead.
	uploaded, err := runUpload(ctx, cfg, logger, paths, cfg.Extraction.Limit)
	if err != nil {
		return err
	}

	printSummary(nil, uploaded, time.Since(startTime))
	return nil
}

func runUpload(ctx context.Context, cfg *config.Config, logger *observability.Logger, paths []string, uploadLimit int) (*domain.UploadResult, error) {
	ui.Section("Upload")
	ui.Info("Uploading to Google Drive folder: %s", cfg.Drive.FolderID)
	if ui.Verbose() {
		ui.Info("Offering %d files for upload", len(paths))
	}
	ui.Newline()

	client, err := drive.NewClient(ctx, cfg.Drive, logger)
	if err != nil {
		return nil, err
	}

	coord := upload.NewCoordinator(client, logger, os.Stdout)

	bar := ui.NewProgressBar(int64(len(paths)), "Uploading")
	coord.Offered = func(done int) {
		bar.Set(int64(done))
	}

	result, err := coord.Run(ctx, paths, cfg.Drive.FolderID, uploadLimit)
	bar.Finish()
	if err != nil {
		return nil, err
	}

	ui.Success("Uploaded %d new files", result.Uploaded)
	return result, nil
}

func printSummary(extracted *domain.ExtractionResult, uploaded *domain.UploadResult, duration time.Duration) {
	ui.Section("Summary")

	rows := [][]string{}
	if extracted != nil {
		rows = append(rows,
			[]string{"Images extracted", fmt.Sprintf("%d", len(extracted.Images))},
			[]string{"Images skipped", fmt.Sprintf("%d", extracted.Skipped)},
		)
	}
	if uploaded != nil {
		rows = append(rows,
			[]string{"Files uploaded", fmt.Sprintf("%d", uploaded.Uploaded)},
			[]string{"Uploads skipped", fmt.Sprintf("%d", uploaded.Skipped)},
		)
	}
	rows = append(rows, []string{"Duration", duration.Round(time.Millisecond).String()})

	ui.Table([]string{"Metric", "Value"}, rows)
}
