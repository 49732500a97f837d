package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mailwing/mailwing/internal/config"
	"github.com/mailwing/mailwing/internal/db"
	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/dom"
	"github.com/mailwing/mailwing/internal/engine"
	"github.com/mailwing/mailwing/internal/extract"
	"github.com/mailwing/mailwing/internal/host"
	"github.com/mailwing/mailwing/internal/llm"
	"github.com/mailwing/mailwing/internal/services"
	"github.com/mailwing/mailwing/internal/surface"
	"github.com/mailwing/mailwing/internal/tracker"
	"github.com/mailwing/mailwing/internal/version"
)

func main() {
	// Essential command line flags only (GNU-style double dashes)
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/mailwing/config.json)")
	snapshotFlag := flag.String("snapshot", "", "Path to a captured HTML snapshot to reconcile against")
	urlFlag := flag.String("url", "https://mail.google.com/mail/u/0/#inbox", "Page URL the snapshot was captured at")
	generateFlag := flag.Bool("generate", false, "Generate a draft reply for the snapshot's conversation")
	watchFlag := flag.Bool("watch", false, "Keep running and re-reconcile when the selector pack file changes")
	auditFlag := flag.Int("audit", 0, "Print the N most recent audit events and exit")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s --snapshot page.html                  # Classify a snapshot and place the surface\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --snapshot page.html --generate      # Also draft a reply for the conversation\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --snapshot page.html --watch         # Re-run whenever the selector pack changes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --audit 20                           # Show recent engine activity\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version                            # Show version information\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MAILWING_CONFIG   Override default config file path\n\n")
		fmt.Fprintf(os.Stderr, "For all other settings (LLM, trigger tuning, etc.), edit the config file.\n")
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	configPath := getConfigPath(*configPathFlag)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		cfg = config.DefaultConfig()
	}

	logger := setupLogger(cfg)
	ctx := context.Background()

	// Optional: open the preference/audit store. The snapshot flow still
	// works without it; toggles just fall back to the default.
	var store *db.Store
	if cfg.DBPath != "" {
		if st, err := db.Open(ctx, cfg.DBPath); err == nil {
			store = st
			defer store.Close()
		} else {
			log.Printf("Warning: could not open preference store: %v", err)
		}
	}

	if *auditFlag > 0 {
		if store == nil {
			log.Fatal("Audit log requires a database; set db_path in the config file.")
		}
		printAudit(ctx, store, *auditFlag)
		return
	}

	if *snapshotFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	markup, err := os.ReadFile(*snapshotFlag)
	if err != nil {
		log.Fatalf("Could not read snapshot %s: %v", *snapshotFlag, err)
	}
	doc, err := dom.ParseDocument(string(markup))
	if err != nil {
		log.Fatalf("Could not parse snapshot: %v", err)
	}

	page := host.NewSimPage(*urlFlag, doc)
	runtime := host.NewSimRuntime()

	pack := loadSelectorPack(cfg, logger)
	detector := detect.NewDetector(page, pack)
	presenter := surface.NewDOMPresenter(doc, logger)

	var prefs services.PrefsService
	var audit services.AuditService
	if store != nil {
		prefsImpl := services.NewPrefsService(db.NewPrefStore(store), runtime)
		prefsImpl.SetLogger(logger)
		prefs = prefsImpl
		audit = services.NewAuditService(db.NewAuditStore(store), runtime)
	}

	trk := tracker.New(page, detector, presenter, prefs, audit, logger)

	var provider llm.Provider
	if cfg.LLM.Enabled && cfg.LLM.Model != "" {
		region := cfg.LLM.Region
		if region == "" {
			region = os.Getenv("AWS_REGION")
		}
		provider, err = llm.NewProviderFromConfig(cfg.LLM.Provider, cfg.LLM.Endpoint, cfg.LLM.Model, region, cfg.GetLLMTimeout())
		if err != nil {
			log.Printf("Warning: could not initialize LLM provider (%s): %v", cfg.LLM.Provider, err)
		}
	}
	replies := services.NewReplyService(provider, cfg, runtime, audit)
	if store != nil && cfg.LLM.CacheDrafts {
		replies.SetDraftCache(db.NewDraftCache(store))
	}

	eng := engine.New(runtime, page, trk, detector, replies, cfg.LLM.MaxContextChars, logger)

	eng.RunOnce(ctx)
	printState(trk, detector, doc)

	if *generateFlag {
		body, err := extract.MessageText(doc, detector.Selectors().MessageBody, cfg.LLM.MaxContextChars)
		if err != nil {
			log.Fatalf("Could not extract conversation text: %v", err)
		}
		_, tid := trk.State()
		result, err := replies.GenerateReply(ctx, body, services.ReplyOptions{ThreadID: tid})
		if err != nil {
			log.Fatalf("Could not generate reply: %v", err)
		}
		fmt.Printf("\nDraft (%s, %s):\n%s\n", result.Provider, result.Duration.Round(time.Millisecond), result.Text)
	}

	if *watchFlag {
		runWatch(ctx, cfg, detector, eng, trk, doc, logger)
	}
}

// runWatch blocks, re-running the reconciliation pass every time the selector
// pack file is rewritten. Handy while tuning selectors against a snapshot.
func runWatch(ctx context.Context, cfg *config.Config, detector *detect.Detector, eng *engine.Engine, trk *tracker.Tracker, doc dom.Document, logger *log.Logger) {
	if cfg.SelectorPack == "" {
		log.Fatal("--watch requires selector_pack to be set in the config file.")
	}
	stop, err := detect.WatchSelectorPack(cfg.SelectorPack, logger, func(pack *detect.SelectorPack) {
		detector.SetSelectors(pack)
		eng.RunOnce(ctx)
		printState(trk, detector, doc)
	})
	if err != nil {
		log.Fatalf("Could not watch selector pack: %v", err)
	}
	defer stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.SelectorPack)
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-sigCtx.Done()
}

func printState(trk *tracker.Tracker, detector *detect.Detector, doc dom.Document) {
	state, tid := trk.State()
	fmt.Printf("view:     %s\n", detector.Classify())
	if tid != "" {
		fmt.Printf("thread:   %s\n", tid)
	}
	if state == tracker.Attached {
		fmt.Printf("surface:  attached (%d root)\n", len(doc.QueryAll("["+surface.RootMarker+"]")))
	} else {
		fmt.Printf("surface:  detached\n")
	}
}

func printAudit(ctx context.Context, store *db.Store, limit int) {
	events, err := db.NewAuditStore(store).Recent(ctx, limit)
	if err != nil {
		log.Fatalf("Could not read audit log: %v", err)
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-18s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Event)
		if e.ThreadID != "" {
			line += "  " + e.ThreadID
		}
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Println(line)
	}
}

func loadSelectorPack(cfg *config.Config, logger *log.Logger) *detect.SelectorPack {
	if cfg.SelectorPack == "" {
		return nil
	}
	pack, err := detect.LoadSelectorPack(cfg.SelectorPack)
	if err != nil {
		log.Printf("Warning: could not load selector pack %s: %v", cfg.SelectorPack, err)
		return nil
	}
	return pack
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAILWING_CONFIG
// 3. Default path ~/.config/mailwing/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv("MAILWING_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}
	return config.DefaultConfigPath()
}

// setupLogger writes to the configured log file, falling back to stderr when
// the file cannot be opened.
func setupLogger(cfg *config.Config) *log.Logger {
	if cfg.LogFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err == nil {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			return log.New(f, "", log.LstdFlags)
		}
	}
	log.Printf("Warning: could not open log file %s; logging to stderr", cfg.LogFile)
	return log.New(os.Stderr, "", log.LstdFlags)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
