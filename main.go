// dashkit maintains the generated pieces of a tweet dashboard checkout:
// patched Chinese translations in the analysis output and the logo
// raster set under public/.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tweetlens/dashkit/cache"
	"github.com/tweetlens/dashkit/config"
	"github.com/tweetlens/dashkit/i18n"
	"github.com/tweetlens/dashkit/langs"
	"github.com/tweetlens/dashkit/logos"
	"github.com/tweetlens/dashkit/settings"
	"github.com/tweetlens/dashkit/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// Global flag
var rootDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dashkit",
		Short: "Tweet dashboard asset kit: translation patching and logo generation",
		Long: `dashkit maintains the generated pieces of a tweet dashboard checkout:
patched Chinese translations in the analysis output and the logo
raster set under public/.

Commands:
  status      Show project info, tweet cache and asset statistics
  translate   Patch missing tweet translations using OpenAI
  logos       Regenerate logo rasters and favicon.ico from logo.png
  auth        Manage the OpenAI API key

Credentials are resolved from --api-key, then OPENAI_API_KEY (a project
.env file is honored), then the key stored by 'dashkit auth login'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newTranslateCmd(),
		newLogosCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// loadProject detects the project layout and applies .dashkit.yaml
// overrides. Config errors are fatal.
func loadProject() *config.Project {
	proj := config.Detect(rootDir)

	df, err := config.LoadDashkitFile(proj.Root)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	if df != nil {
		df.Apply(proj)
	}

	return proj
}

// loadEnvFile pulls OPENAI_API_KEY and friends from a project .env if
// present. Variables already set in the environment win.
func loadEnvFile(root string) {
	_ = godotenv.Load(filepath.Join(root, ".env"))
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dashkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only: project info plus cache and asset stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info, tweet cache and asset statistics",
		Long: `Show the detected project layout, tweet cache statistics,
translation coverage and generated asset state. Does not modify any files.`,
		Run: func(cmd *cobra.Command, args []string) {
			runStatus()
		},
	}

	return cmd
}

func runStatus() {
	proj := loadProject()
	loadEnvFile(proj.Root)

	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Project"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	fmt.Fprintf(os.Stderr, "  Root:       %s\n", proj.Root)
	fmt.Fprintf(os.Stderr, "  Tweets:     %s %s\n", proj.TweetsPath(), presence(proj.TweetsPath()))
	fmt.Fprintf(os.Stderr, "  Analysis:   %s %s\n", proj.AnalysisPath(), presence(proj.AnalysisPath()))
	fmt.Fprintf(os.Stderr, "  Logo:       %s %s\n", proj.LogoPath(), presence(proj.LogoPath()))
	fmt.Fprintf(os.Stderr, "  Public:     %s\n", proj.PublicPath())

	model := proj.Model
	if model == "" {
		model = translate.DefaultModel
	}
	limit := proj.Limit
	if limit == 0 {
		limit = translate.DefaultLimit
	}
	fmt.Fprintf(os.Stderr, "  Model:      %s (batch limit %d)\n", model, limit)
	fmt.Fprintln(os.Stderr)

	pending, pendingKnown := showCacheStats(proj)
	missing := showAssetStats(proj)
	showCredentialStatus()
	printSuggestedCommands(pending, pendingKnown, missing)
}

// showCacheStats prints the tweet cache and translation coverage
// sections. The pending count is only known when both data files parse.
func showCacheStats(proj *config.Project) (pending int, known bool) {
	tweetsPath := proj.TweetsPath()
	tf, err := cache.ParseTweetsFile(tweetsPath)
	if err != nil {
		logInfo("Tweet cache not readable (%v)", err)
		fmt.Fprintln(os.Stderr)
		return 0, false
	}

	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Tweet Cache"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Total tweets: %d\n\n", len(tf.Tweets))

	counts := sortedLangCounts(tf.LangCounts())
	if len(counts) > 0 {
		fmt.Fprintf(os.Stderr, "  %-8s %-8s %s\n", "Lang", "Tweets", "Language")
		fmt.Fprintln(os.Stderr, "  "+strings.Repeat("─", 42))

		shown := counts
		if len(shown) > 8 {
			shown = shown[:8]
		}
		for _, lc := range shown {
			meta := langs.Resolve(lc.code)
			label := meta.Name
			if meta.Flag != "" {
				label = meta.Flag + " " + meta.Name
			}
			fmt.Fprintf(os.Stderr, "  %-8s %-8d %s\n", lc.code, lc.count, label)
		}
		if rest := len(counts) - len(shown); rest > 0 {
			fmt.Fprintf(os.Stderr, "  and %d more languages\n", rest)
		}
		fmt.Fprintln(os.Stderr)
	}

	analysisPath := proj.AnalysisPath()
	af, err := cache.ParseAnalysisFile(analysisPath)
	if err != nil {
		logInfo("Analysis output not readable (%v)", err)
		fmt.Fprintln(os.Stderr)
		return 0, false
	}

	english := tf.LangCounts()["en"]
	pendingList := translate.Pending(tf, af)
	translated := english - len(pendingList)

	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Translations"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Analysis records: %d\n", len(af.Items))
	fmt.Fprintf(os.Stderr, "  English tweets:   %d\n", english)
	fmt.Fprintf(os.Stderr, "  Translated:       %d\n", translated)
	fmt.Fprintf(os.Stderr, "  Pending:          %d\n", len(pendingList))

	percent := 100
	if english > 0 {
		percent = translated * 100 / english
	}
	fmt.Fprintf(os.Stderr, "\n  %s\n\n", progressBar(percent, 30))

	if len(pendingList) > 0 {
		preview := pendingList
		if len(preview) > 5 {
			preview = preview[:5]
		}
		for _, tw := range preview {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", tw.ID, shorten(tw.Text, 48))
		}
		if rest := len(pendingList) - len(preview); rest > 0 {
			fmt.Fprintf(os.Stderr, "  and %d more pending\n", rest)
		}
		fmt.Fprintln(os.Stderr)
	}

	return len(pendingList), true
}

// showAssetStats prints the generated asset section and returns how
// many assets are missing.
func showAssetStats(proj *config.Project) (missing int) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Generated Assets"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	dir := proj.PublicPath()
	names := make([]string, 0, len(logos.Derivatives)+1)
	for _, d := range logos.Derivatives {
		names = append(names, d.Name)
	}
	names = append(names, logos.ICOName)

	for _, name := range names {
		path := filepath.Join(dir, name)
		fmt.Fprintf(os.Stderr, "  %-36s %s\n", name, presence(path))
		if !fileExists(path) {
			missing++
		}
	}
	fmt.Fprintln(os.Stderr)

	return missing
}

func showCredentialStatus() {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Credentials"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	envVar := settings.EnvVarForProvider(settings.ProviderOpenAI)
	if envKey := os.Getenv(envVar); envKey != "" {
		fmt.Fprintf(os.Stderr, "  %s: %s%s%s\n", envVar, colorGreen, settings.MaskKey(envKey), colorReset)
	} else {
		fmt.Fprintf(os.Stderr, "  %s: %snot set%s\n", envVar, colorRed, colorReset)
	}

	entry := settings.Get(settings.ProviderOpenAI)
	if entry != nil && entry.Key != "" {
		fmt.Fprintf(os.Stderr, "  Stored key:     %sconfigured%s (key: %s)\n", colorGreen, colorReset, settings.MaskKey(entry.Key))
		if entry.BaseURL != "" {
			fmt.Fprintf(os.Stderr, "  Endpoint:       %s\n", entry.BaseURL)
		}
	} else {
		fmt.Fprintf(os.Stderr, "  Stored key:     %snot configured%s\n", colorRed, colorReset)
	}
	fmt.Fprintln(os.Stderr)
}

func printSuggestedCommands(pending int, pendingKnown bool, missingAssets int) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Suggested Commands"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	if !pendingKnown || pending > 0 {
		fmt.Fprintf(os.Stderr, "  # Patch missing tweet translations\n")
		fmt.Fprintf(os.Stderr, "  dashkit translate\n\n")
	}
	if missingAssets > 0 {
		fmt.Fprintf(os.Stderr, "  # Regenerate logo assets\n")
		fmt.Fprintf(os.Stderr, "  dashkit logos\n\n")
	}
	if pendingKnown && pending == 0 && missingAssets == 0 {
		logSuccess("%s", i18n.T("Everything is up to date"))
	}
}

// ---------------------------------------------------------------------------
// translate (patch missing translations in the analysis output)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		apiKey  string
		model   string
		baseURL string

		limit   int
		verbose bool
		dryRun  bool

		timeout time.Duration
		proxy   string
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Patch missing tweet translations using OpenAI",
		Long: `Patch missing Chinese translations in the analysis output.

English tweets whose analysis record has no translation yet are
collected in cache order, and the first batch (default 20) is sent to
the chat endpoint in a single request. The response is split into
blank-line segments and applied positionally, then the analysis file
is rewritten in place.

Examples:
  # Patch up to 20 tweets
  dashkit translate

  # Larger batch against a self-hosted endpoint
  dashkit translate --limit 50 --base-url http://127.0.0.1:8080/v1

  # Show the batch without calling the API
  dashkit translate --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			runTranslate(translateArgs{
				apiKey: apiKey, model: model, baseURL: baseURL,
				limit: limit, verbose: verbose, dryRun: dryRun,
				timeout: timeout, proxy: proxy,
			})
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or OPENAI_API_KEY env var)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default: "+translate.DefaultModel+")")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom OpenAI-compatible endpoint URL")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max tweets per batch (default: 20)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the batch without calling the API")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (0 = default)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/HTTPS proxy URL")

	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"gpt-4o-mini\tfast, the default",
			"gpt-4o\thigher quality",
			"gpt-4.1-mini\tnewer mini tier",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	apiKey, model, baseURL string
	limit                  int
	verbose, dryRun        bool
	timeout                time.Duration
	proxy                  string
}

func runTranslate(a translateArgs) {
	proj := loadProject()

	// Flags override .dashkit.yaml which overrides defaults
	if a.limit > 0 {
		proj.Limit = a.limit
	}
	if a.model != "" {
		proj.Model = a.model
	}
	if a.baseURL != "" {
		proj.BaseURL = a.baseURL
	}

	loadEnvFile(proj.Root)

	// The credential check runs before any data file is touched.
	key := settings.ResolveAPIKey(settings.ProviderOpenAI, a.apiKey)
	if key == "" {
		logError("OPENAI_API_KEY not found in environment")
		fmt.Fprintf(os.Stderr, "  Set the variable, add it to %s, or run 'dashkit auth login'\n",
			filepath.Join(proj.Root, ".env"))
		os.Exit(1)
	}

	baseURL := proj.BaseURL
	if baseURL == "" {
		baseURL = settings.GetBaseURL(settings.ProviderOpenAI)
	}

	prov := translate.Provider{
		Name:    settings.ProviderOpenAI,
		BaseURL: baseURL,
		APIKey:  key,
		Model:   proj.Model,
		Proxy:   a.proxy,
		Timeout: a.timeout,
	}
	if err := prov.Validate(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	tweetsPath := proj.TweetsPath()
	tf, err := cache.ParseTweetsFile(tweetsPath)
	if err != nil {
		logError("Reading %s: %v", tweetsPath, err)
		os.Exit(1)
	}

	analysisPath := proj.AnalysisPath()
	af, err := cache.ParseAnalysisFile(analysisPath)
	if err != nil {
		logError("Reading %s: %v", analysisPath, err)
		os.Exit(1)
	}

	pending := translate.Pending(tf, af)
	if len(pending) == 0 {
		logSuccess("%s", i18n.T("No English tweets need translation"))
		return
	}

	logInfo("%s", fmt.Sprintf(i18n.N(
		"Found %d English tweet needing translation",
		"Found %d English tweets needing translation",
		len(pending)), len(pending)))

	if a.verbose {
		logInfo("Model: %s, endpoint: %s", effectiveModel(proj), effectiveBaseURL(baseURL))
	}

	if a.dryRun {
		batch := pending
		limit := proj.Limit
		if limit == 0 {
			limit = translate.DefaultLimit
		}
		if len(batch) > limit {
			batch = batch[:limit]
		}
		for _, tw := range batch {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", tw.ID, shorten(tw.Text, 60))
		}
		logInfo("%s", i18n.T("Dry run: no API call made, no files changed"))
		return
	}

	// Graceful cancellation on Ctrl-C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, cancelling request...")
		cancel()
	}()

	res, err := translate.Patch(ctx, tf, af, prov, translate.Options{
		Limit:   proj.Limit,
		Verbose: a.verbose,
		OnLog:   logInfo,
	})
	if err != nil {
		if ctx.Err() != nil {
			logWarning("Translation interrupted, no changes written")
			os.Exit(0)
		}
		logError("Translation failed: %v", err)
		os.Exit(1)
	}

	if err := af.WriteFile(analysisPath); err != nil {
		logError("Writing %s: %v", analysisPath, err)
		os.Exit(1)
	}

	if res.Received < res.Requested {
		logWarning("API returned %d segments for %d tweets", res.Received, res.Requested)
	}
	if len(res.Dropped) > 0 {
		ids := make([]string, len(res.Dropped))
		for i, id := range res.Dropped {
			ids[i] = id.String()
		}
		logWarning("%d translations had no analysis record and were dropped: %s",
			len(res.Dropped), strings.Join(ids, ", "))
	}

	logSuccess("%s", fmt.Sprintf(i18n.N(
		"Translated %d tweet",
		"Translated %d tweets",
		res.Requested), res.Requested))
}

func effectiveModel(proj *config.Project) string {
	if proj.Model != "" {
		return proj.Model
	}
	return translate.DefaultModel
}

func effectiveBaseURL(baseURL string) string {
	if baseURL != "" {
		return baseURL
	}
	return translate.DefaultBaseURL
}

// ---------------------------------------------------------------------------
// logos (regenerate the logo asset set)
// ---------------------------------------------------------------------------

func newLogosCmd() *cobra.Command {
	var (
		logoFile string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "logos",
		Short: "Regenerate logo rasters and favicon.ico from logo.png",
		Long: `Regenerate the logo asset set from the source logo.

Reads logo.png from the project root and writes the sidebar and login
logos, favicon PNGs, apple-touch icons, and favicon.ico into the
public directory. The directory is created if needed and existing
files are overwritten.`,
		Run: func(cmd *cobra.Command, args []string) {
			runLogos(logosArgs{logo: logoFile, out: outDir})
		},
	}

	cmd.Flags().StringVar(&logoFile, "logo", "", "Source logo path (default: logo.png)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: public)")

	return cmd
}

type logosArgs struct {
	logo, out string
}

func runLogos(a logosArgs) {
	proj := loadProject()

	if a.logo != "" {
		proj.LogoFile = a.logo
	}
	if a.out != "" {
		proj.PublicDir = a.out
	}

	src := proj.LogoPath()
	img, err := logos.Load(src)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	b := img.Bounds()
	logInfo(i18n.T("Source logo: %dx%d"), b.Dx(), b.Dy())
	if b.Dx() != b.Dy() {
		logWarning("Source is not square, derivatives will be stretched")
	}

	outDir := proj.PublicPath()
	paths, err := logos.WriteAll(outDir, img)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	for i, d := range logos.Derivatives {
		logSuccess(i18n.T("Created %s (%dx%d)"), paths[i], d.Size, d.Size)
	}
	logSuccess(i18n.T("Created %s (32x32 icon)"), paths[len(paths)-1])

	logSuccess("%s", fmt.Sprintf(i18n.N(
		"Generated %d asset in %s",
		"Generated %d assets in %s",
		len(paths)), len(paths), outDir))
}

// ---------------------------------------------------------------------------
// auth (manage the OpenAI API key)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenAI API key",
		Long: `Manage the stored API key for the translation endpoint.

Keys are stored in the XDG data directory with 0600 permissions
(~/.local/share/dashkit/auth.json).

Examples:
  dashkit auth login                                 Store an API key
  dashkit auth login --base-url https://llm.lan/v1   Key for a custom endpoint
  dashkit auth logout                                Remove the stored key
  dashkit auth list                                  Show stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the OpenAI API key",
		Long: `Store an API key for the translation endpoint.

The key is read from stdin. Pass --base-url to point translation at a
self-hosted OpenAI-compatible server instead of the official API.`,
		Run: func(cmd *cobra.Command, args []string) {
			authLoginOpenAI(baseURL)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom OpenAI-compatible endpoint URL")

	return cmd
}

func authLoginOpenAI(baseURL string) {
	fmt.Fprintf(os.Stderr, "\n%sOpenAI API Key Setup%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  Get your API key from: %shttps://platform.openai.com/api-keys%s\n\n", colorGreen, colorReset)

	existing := settings.Get(settings.ProviderOpenAI)
	if existing != nil && existing.Key != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing.Key), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key: ")
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		logError("No input received")
		os.Exit(1)
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		switch {
		case existing != nil && existing.Key != "" && baseURL != "":
			// Keep the key, only the endpoint changes
			key = existing.Key
		case existing != nil && existing.Key != "":
			logInfo("Keeping existing key")
			return
		default:
			logError("No API key provided")
			os.Exit(1)
		}
	}

	// A previously stored endpoint survives a key rotation
	if baseURL == "" && existing != nil {
		baseURL = existing.BaseURL
	}

	var err error
	if baseURL != "" {
		err = settings.SetAPIKeyWithBaseURL(settings.ProviderOpenAI, key, baseURL)
	} else {
		err = settings.SetAPIKey(settings.ProviderOpenAI, key)
	}
	if err != nil {
		logError("Failed to save API key: %v", err)
		os.Exit(1)
	}

	logSuccess("OpenAI API key saved!")
	fmt.Fprintf(os.Stderr, "\n  You can now use: dashkit translate\n\n")
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Run: func(cmd *cobra.Command, args []string) {
			if err := settings.Remove(settings.ProviderOpenAI); err != nil {
				logError("Failed to remove credentials: %v", err)
				os.Exit(1)
			}
			logSuccess("Stored credentials removed")
		},
	}
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			loadEnvFile(rootDir)

			fmt.Fprintf(os.Stderr, "\n%sStored Credentials%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			entry := settings.Get(settings.ProviderOpenAI)
			if entry != nil && entry.Key != "" {
				status := fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
				if entry.BaseURL != "" {
					status += fmt.Sprintf("\n  %14s endpoint: %s", "", entry.BaseURL)
				}
				fmt.Fprintf(os.Stderr, "  %-14s %s\n", settings.ProviderOpenAI, status)
			} else {
				fmt.Fprintf(os.Stderr, "  %-14s %snot configured%s\n", settings.ProviderOpenAI, colorRed, colorReset)
			}

			fmt.Fprintf(os.Stderr, "\n  %sEnvironment Variables%s\n", colorYellow, colorReset)
			envVar := settings.EnvVarForProvider(settings.ProviderOpenAI)
			if envKey := os.Getenv(envVar); envKey != "" {
				fmt.Fprintf(os.Stderr, "  %s: %s%s%s (overrides stored keys)\n", envVar, colorGreen, settings.MaskKey(envKey), colorReset)
			} else {
				fmt.Fprintf(os.Stderr, "  %s: %snot set%s\n", envVar, colorRed, colorReset)
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fileExists returns true if the file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// presence renders a colored existence marker for a path.
func presence(path string) string {
	if fileExists(path) {
		return colorGreen + "ok" + colorReset
	}
	return colorRed + "missing" + colorReset
}

// progressBar renders a fixed-width coverage bar with a percent suffix.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := width * percent / 100
	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}

	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset +
		fmt.Sprintf(" %3d%%", percent)
}

type langCount struct {
	code  string
	count int
}

// sortedLangCounts orders language tallies by count, then code.
func sortedLangCounts(counts map[string]int) []langCount {
	out := make([]langCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, langCount{code: code, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].code < out[j].code
	})
	return out
}

// shorten truncates s for single-line display.
func shorten(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
