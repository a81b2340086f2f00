package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mmcdole/tadb/internal/adapter"
	"github.com/mmcdole/tadb/internal/adapter/source"
	"github.com/mmcdole/tadb/internal/render"
	"github.com/mmcdole/tadb/internal/service"
	"github.com/mmcdole/tadb/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `Usage: tadb [flags] <command> [args]

Commands:
  stats             record counts for every data set
  list              summary of every post
  show <id>         full details of one post
  search <query>    fuzzy search post titles
  tag <tag>         posts with a category or label
  add <file|->      add or update a post from JSON
  delete <id>       remove a post
  get <type>        records of posts, schedule or creators as JSON
  reset [type...]   delete stored data sets (all when none given)
  export [dir]      write every stored data set as JSON files

Flags:
`

func main() {
	var (
		showVersion bool
		configFile  string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configFile, "config", "", "config file (default searches ~/.config/tadb and .)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("tadb %s\n", Version)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(configFile, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, args []string) error {
	// Load configuration
	cfg, err := adapter.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting tadb", "version", Version, "command", args[0])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	a.printer = render.Detect(os.Stdout)
	a.stdin = os.Stdin

	return a.run(ctx, args)
}

// newApp builds the loader and repository over the configured backends
func newApp(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	st, err := store.Open(store.Driver(cfg.Store.Driver), cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	src, err := source.New(&cfg.Source, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to create static source: %w", err)
	}

	loader := service.NewLoader(src, st, logger, service.WithStagger(cfg.Export.Stagger))
	repo := service.NewPostRepository(ctx, loader, logger)

	return &app{
		loader:    loader,
		repo:      repo,
		store:     st,
		exportDir: cfg.Export.Dir,
		logger:    logger,
	}, nil
}
