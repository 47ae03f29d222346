package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// appVersion is set at build time via -ldflags="-X main.appVersion=x.x.x"
var appVersion = "dev"

const appName = "kindle-bulk-downloader"

// flags holds the command line options shared by run and scan.
type flags struct {
	configPath  string
	marketplace string
	profile     string
	execPath    string
	downloadDir string
	driver      string
	headless    bool
	verbose     bool
	logFile     string

	auto     bool
	closeEnd bool
	limit    int
	maxPages int
	from     string
	to       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Trigger \"Download & transfer via USB\" for every book in your Kindle library",
		Long: `Opens the Amazon "Manage your content and devices" book list in a browser,
and for every book on every page opens its menu, chooses "Download & transfer
via USB", picks the first Kindle and confirms. Samples are skipped.

Sign in once in the browser window; the session is kept in a dedicated profile.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), f)
		},
	}
	addBrowserFlags(root, f)
	addRunFlags(root, f)

	runCmd := &cobra.Command{
		Use:          "run",
		Short:        "Process the book list (default command)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), f)
		},
	}
	addRunFlags(runCmd, f)

	scanCmd := &cobra.Command{
		Use:          "scan",
		Short:        "List every book as JSON lines without clicking any book control",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), f, cmd.OutOrStdout())
		},
	}
	scanCmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Stop after this many pages (0 = all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}

	root.AddCommand(runCmd, scanCmd, versionCmd)
	return root
}

func addBrowserFlags(cmd *cobra.Command, f *flags) {
	defaultDownload := filepath.Join("~", "Downloads", "kindle")

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file with selector and timing overrides")
	pf.StringVar(&f.marketplace, "marketplace", "", "Amazon host, e.g. www.amazon.nl (overrides the config file)")
	pf.StringVar(&f.profile, "profile", "", "Path to browser profile (default: dedicated profile in the user config dir)")
	pf.StringVar(&f.execPath, "exec", "", "Browser executable (auto-detect if empty)")
	pf.StringVar(&f.downloadDir, "download", defaultDownload, "Directory to save downloads")
	pf.StringVar(&f.driver, "driver", driverChromedp, "Browser driver: chromedp or rod")
	pf.BoolVar(&f.headless, "headless", false, "Run the browser without a window (needs an already signed-in profile)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Log browser protocol diagnostics")
	pf.StringVar(&f.logFile, "log-file", "", "Write the session log to this file on exit")
}

func addRunFlags(cmd *cobra.Command, f *flags) {
	fl := cmd.Flags()
	fl.BoolVar(&f.auto, "auto", false, "Start at once instead of waiting for the in-page \"Trigger Download\" button")
	fl.BoolVar(&f.closeEnd, "close", false, "Close the browser when done instead of leaving it open for pending downloads")
	fl.IntVar(&f.limit, "limit", 0, "Process at most this many books per page (0 = all)")
	fl.IntVar(&f.maxPages, "max-pages", 0, "Stop after this many pages (0 = all)")
	fl.StringVar(&f.from, "from", "", "Only books acquired on or after this date (YYYY-MM-DD)")
	fl.StringVar(&f.to, "to", "", "Only books acquired on or before this date (YYYY-MM-DD)")
}
