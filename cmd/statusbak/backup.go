package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"statusbak/pkg/backup"
	"statusbak/pkg/browser"
	"statusbak/pkg/config"
	"statusbak/pkg/extract"
	"statusbak/pkg/logger"
	"statusbak/pkg/state"
	"statusbak/pkg/storage"
	"statusbak/pkg/ui"
)

var (
	// Backup command flags
	fromPage    int
	toPage      int
	singlePage  int
	outputDir   string
	zipOutput   bool
	comments    bool
	snapshotDir string
	startURL    string
	headless    bool
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up a range of timeline pages",
	Long: `Back up the given page range of the timeline you are viewing.

A multi-page run persists its cursor between pages, so an interrupted
run resumes where it left off when started again within 12 hours. Use
'statusbak cancel' to abandon an in-flight run.`,
	Example: `  # Back up pages 1 through 10 with a live browser
  statusbak backup --from 1 --to 10

  # Back up a single page
  statusbak backup --page 3

  # Back up saved page files and bundle the results
  statusbak backup --snapshot-dir ./pages --from 1 --to 5 --zip`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().IntVar(&fromPage, "from", 1, "first page to back up")
	backupCmd.Flags().IntVar(&toPage, "to", 0, "last page to back up (0 means the whole timeline)")
	backupCmd.Flags().IntVar(&singlePage, "page", 0, "back up a single page")
	backupCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for documents")
	backupCmd.Flags().BoolVar(&zipOutput, "zip", false, "bundle the run's documents into a zip")
	backupCmd.Flags().BoolVar(&comments, "comments", true, "capture in-place comment lists")
	backupCmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "read saved page_<n>.html files instead of a live browser")
	backupCmd.Flags().StringVar(&startURL, "url", "", "timeline URL to open")
	backupCmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
}

func runBackup(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"snapshot-dir": snapshotDir,
		"url":          startURL,
		"output":       outputDir,
	}
	if cmd.Flags().Changed("zip") {
		flags["zip"] = zipOutput
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if cmd.Flags().Changed("comments") {
		flags["comments"] = comments
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("statusbak starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	fetcher := newCommentFetcher(cfg, session)
	normalizer := extract.NewNormalizer(fetcher, cfg.Backup.ItemTimeout, cfg.Backup.FetchComments)
	driver := extract.NewDriver(normalizer)

	store, err := state.NewFileStore()
	if err != nil {
		return err
	}
	machine := state.NewMachine(store, nil)

	manager, err := storage.NewManager(cfg.Output)
	if err != nil {
		return err
	}

	runner := backup.NewRunner(
		session, driver, machine, manager,
		ui.NewReporter(quiet),
		cfg.Backup, cfg.Output.Zip, nil,
	)

	from, to := fromPage, toPage
	if singlePage > 0 {
		from, to = singlePage, singlePage
	}

	summary, err := runner.Run(ctx, from, to)
	if err != nil {
		log.WithError(err).Error("backup failed")
		return err
	}
	log.InfoWithFields("backup finished", map[string]interface{}{
		"pages":    summary.Pages,
		"statuses": summary.Statuses,
		"skipped":  len(summary.Skipped),
	})
	return nil
}

// newSession builds the configured page source.
func newSession(ctx context.Context, cfg *config.Config) (browser.Session, error) {
	if cfg.Browser.Mode == "snapshot" {
		return browser.NewSnapshotSession(cfg.Browser.SnapshotDir)
	}
	return browser.NewChromeSession(ctx, browser.ChromeOptions{
		StartURL:    cfg.Browser.StartURL,
		Headless:    cfg.Browser.Headless,
		SettleDelay: cfg.Backup.SettleDelay,
	})
}

// newCommentFetcher picks the comment strategy for the session kind.
// Snapshots cannot reveal lazy lists, so they read whatever markup is
// already rendered.
func newCommentFetcher(cfg *config.Config, session browser.Session) extract.CommentFetcher {
	if !cfg.Backup.FetchComments {
		return nil
	}
	if cfg.Browser.Mode == "snapshot" {
		return extract.StaticCommentFetcher{}
	}
	return &extract.LiveCommentFetcher{Revealer: session}
}
