package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nevindra/biblio"
	"github.com/nevindra/biblio/ingest"
	"github.com/nevindra/biblio/internal/config"
	"github.com/nevindra/biblio/observer"
	"github.com/nevindra/biblio/provider/mistral"
	"github.com/nevindra/biblio/store/postgres"
	"github.com/nevindra/biblio/store/qdrant"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BIBLIO_CONFIG"), "path to TOML config file")
	flag.Parse()

	// 1. Load config
	cfg := config.Load(*configPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Observability (optional)
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer shutdown(context.Background()) //nolint:errcheck
	}

	// 3. Create providers
	var llm biblio.Provider
	var embedding biblio.EmbeddingProvider
	if cfg.Mistral.APIKey != "" {
		llm = biblio.WithRetry(
			mistral.New(cfg.Mistral.APIKey, mistral.WithModel(cfg.Mistral.ChatModel)),
			biblio.RetryLogger(logger),
		)
		embedding = biblio.WithEmbeddingRetry(
			mistral.NewEmbedding(cfg.Mistral.APIKey, mistral.WithModel(cfg.Mistral.EmbedModel)),
			biblio.RetryLogger(logger),
		)
		if inst != nil {
			llm = observer.WrapProvider(llm, inst)
			embedding = observer.WrapEmbedding(embedding, inst)
		}
	} else {
		logger.Warn("no mistral api key, summaries and semantic search disabled")
	}

	// 4. Create stores
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	catalog := postgres.New(pool)
	if err := catalog.Init(ctx); err != nil {
		log.Fatalf("init postgres schema: %v", err)
	}

	index := qdrant.New(cfg.Qdrant.URL,
		qdrant.WithAPIKey(cfg.Qdrant.APIKey),
		qdrant.WithCollection(cfg.Qdrant.Collection),
	)

	// 5. Run command
	if err := run(ctx, cfg, logger, catalog, index, llm, embedding); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, catalog biblio.Catalog, index biblio.VectorIndex, llm biblio.Provider, embedding biblio.EmbeddingProvider) error {
	cmd := "ingest"
	args := flag.Args()
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "ingest":
		dir := cfg.Ingest.DataDir
		if len(args) > 0 {
			dir = args[0]
		}
		pipeline := ingest.New(catalog, index,
			ingest.WithLLM(llm),
			ingest.WithEmbedding(embedding),
			ingest.WithLogger(logger),
		)
		report, err := pipeline.RunDir(ctx, dir)
		if err != nil {
			return err
		}
		fmt.Printf("processed %d, failed %d\n", len(report.Processed), len(report.Failed))
		return nil

	case "search":
		searcher := biblio.NewSearcher(catalog, index, embedding, biblio.WithSearchLogger(logger))
		page, err := searcher.Search(ctx, biblio.SearchRequest{Query: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		for _, b := range page.Books {
			fmt.Printf("%s  %s (%s)\n", b.Reference, b.Title, strings.Join(b.Authors, ", "))
		}
		fmt.Printf("%d books total\n", page.Total)
		return nil

	case "ask":
		if llm == nil || embedding == nil {
			return fmt.Errorf("ask requires a mistral api key")
		}
		answerer := biblio.NewAnswerer(index, embedding, llm)
		answer, err := answerer.Answer(ctx, []biblio.ChatMessage{biblio.UserMessage(strings.Join(args, " "))})
		if err != nil {
			return err
		}
		fmt.Println(answer.Text)
		for _, src := range answer.Sources {
			fmt.Printf("  [%s] %s\n", src.Reference, src.Title)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q (want ingest, search, or ask)", cmd)
	}
}
