package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragkb/internal/app"
	"ragkb/internal/config"
	"ragkb/internal/logger"
	"ragkb/internal/tui"
)

const usage = `Usage: rag [-config=config.yaml] <command> [args]

Commands:
  ingest file1.txt [file2.pdf ...]   chunk, embed and store documents (globs allowed)
  query [-k N] text                  print the most similar chunks
  chat message                       answer a message from the stored knowledge
  tui                                interactive search
`

// The TUI lists more hits than the chat prompt uses.
const tuiTopK = 10

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragkb/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to assemble knowledge base", zap.Error(err))
	}
	defer a.Close()

	if err := run(ctx, a, args[0], args[1:]); err != nil {
		log.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		a.Close()
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "ingest":
		return ingest(ctx, a, args)
	case "query":
		return query(ctx, a, args)
	case "chat":
		if len(args) == 0 {
			return fmt.Errorf("chat needs a message")
		}
		answer, err := a.Service.Chat(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	case "tui":
		info := fmt.Sprintf("store: %s", a.Config.VectorStore.Type)
		if records, err := a.Store.ReadAll(ctx); err == nil {
			info = fmt.Sprintf("store: %s, %d records", a.Config.VectorStore.Type, len(records))
		}
		_, err := tea.NewProgram(tui.New(a.Service, tuiTopK, info)).Run()
		return err
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func ingest(ctx context.Context, a *app.App, patterns []string) error {
	var paths []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents given")
	}
	for _, p := range paths {
		report, err := a.Service.IngestFile(ctx, p)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", p, err)
		}
		fmt.Printf("%s: %d chunks, %d appended, %d failed\n", p, report.Chunks, report.Appended, report.Failed)
	}
	return nil
}

func query(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	k := fs.Int("k", a.Config.Retrieval.TopK, "number of chunks to return")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("query needs text")
	}
	results, err := a.Service.Search(ctx, q, *k)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("[%d] similarity=%.3f\n%s\n\n", i+1, r.Similarity, r.Text)
	}
	return nil
}
