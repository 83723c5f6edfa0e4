package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/bioterms-backend/internal/annot"
	"github.com/yungbote/bioterms-backend/internal/config"
	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/jobs/ingestrun"
	"github.com/yungbote/bioterms-backend/internal/observability"
	"github.com/yungbote/bioterms-backend/internal/platform/gcsmirror"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/platform/mongodb"
	"github.com/yungbote/bioterms-backend/internal/platform/neo4jdb"
	"github.com/yungbote/bioterms-backend/internal/platform/openai"
	"github.com/yungbote/bioterms-backend/internal/platform/qdrant"
	"github.com/yungbote/bioterms-backend/internal/platform/redisdb"
	"github.com/yungbote/bioterms-backend/internal/platform/relationaldb"
	"github.com/yungbote/bioterms-backend/internal/platform/temporalx"
	"github.com/yungbote/bioterms-backend/internal/similarity"
	"github.com/yungbote/bioterms-backend/internal/store/cache"
	"github.com/yungbote/bioterms-backend/internal/store/docstore"
	"github.com/yungbote/bioterms-backend/internal/store/graphstore"
	"github.com/yungbote/bioterms-backend/internal/store/vectorstore"
	"github.com/yungbote/bioterms-backend/internal/vocab"
)

func main() {
	// Logger
	logMode := os.Getenv("BTS_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Could not load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "bioterms-worker",
		Environment: cfg.Mode,
	})
	defer func() { _ = shutdownOtel(context.Background()) }()

	// Document store
	var docs docstore.DocumentStore
	switch cfg.DocDriver {
	case config.DocDriverMongo:
		mongo, err := mongodb.NewFromEnv(log)
		if err != nil {
			log.Error("Could not connect to MongoDB", "error", err)
			os.Exit(1)
		}
		docs, err = docstore.NewMongoStore(mongo, log, cfg.ProcessLimit)
		if err != nil {
			log.Error("Could not init document store", "error", err)
			os.Exit(1)
		}
	case config.DocDriverRelational:
		gormDB, err := relationaldb.Open(cfg.DataDir, log)
		if err != nil {
			log.Error("Could not open relational database", "error", err)
			os.Exit(1)
		}
		docs, err = docstore.NewRelationalStore(gormDB, log, cfg.ProcessLimit)
		if err != nil {
			log.Error("Could not init document store", "error", err)
			os.Exit(1)
		}
	default:
		log.Error("Unknown document driver", "driver", cfg.DocDriver)
		os.Exit(1)
	}
	defer docs.Close(context.Background())

	// Graph store
	var graph graphstore.GraphStore
	switch cfg.GraphDriver {
	case config.GraphDriverNeo4j:
		neo, err := neo4jdb.NewFromEnv(log)
		if err != nil {
			log.Error("Could not connect to Neo4j", "error", err)
			os.Exit(1)
		}
		graph, err = graphstore.NewNeo4jStore(neo, log)
		if err != nil {
			log.Error("Could not init graph store", "error", err)
			os.Exit(1)
		}
	case config.GraphDriverMemory:
		graph = graphstore.NewMemoryStore(log)
	default:
		log.Error("Unknown graph driver", "driver", cfg.GraphDriver)
		os.Exit(1)
	}
	defer graph.Close(context.Background())

	// Cache
	var statusCache cache.Cache
	switch cfg.CacheDriver {
	case config.CacheDriverRedis:
		redis, err := redisdb.NewFromEnv(log)
		if err != nil {
			log.Error("Could not connect to Redis", "error", err)
			os.Exit(1)
		}
		statusCache, err = cache.NewRedisCache(redis, log)
		if err != nil {
			log.Error("Could not init cache", "error", err)
			os.Exit(1)
		}
	default:
		statusCache = cache.NewNoop()
	}

	// Vector store (optional)
	var vectors vectorstore.VectorStore
	if cfg.VectorDriver == config.VectorDriverQdrant {
		qdrantCfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			log.Error("Could not resolve Qdrant config", "error", err)
			os.Exit(1)
		}
		qc, err := qdrant.NewClient(log, qdrantCfg)
		if err != nil {
			log.Error("Could not init Qdrant client", "error", err)
			os.Exit(1)
		}
		embedder, err := openai.NewClient(log)
		if err != nil {
			log.Error("Could not init embedder", "error", err)
			os.Exit(1)
		}
		vectors, err = vectorstore.NewQdrantStore(qc, embedder, log)
		if err != nil {
			log.Error("Could not init vector store", "error", err)
			os.Exit(1)
		}
	}

	// Release file mirror (optional)
	mirror, err := gcsmirror.NewFromEnv(ctx, log, cfg.MirrorBucket)
	if err != nil {
		log.Error("Could not init release mirror", "error", err)
		os.Exit(1)
	}

	// Registries and orchestrator
	fetch, err := vocab.NewFetcher(cfg, mirror, log)
	if err != nil {
		log.Error("Could not init fetcher", "error", err)
		os.Exit(1)
	}
	vocabs, err := vocab.NewRegistry(fetch, ingest.GeneSymbolGuard(graph), log)
	if err != nil {
		log.Error("Could not init vocabulary registry", "error", err)
		os.Exit(1)
	}
	annots, err := annot.NewRegistry(fetch, log)
	if err != nil {
		log.Error("Could not init annotation registry", "error", err)
		os.Exit(1)
	}
	sim := similarity.NewEngine(graph, vocabs, cfg.ProcessLimit, log)
	svc, err := ingest.NewService(vocabs, annots, docs, graph, vectors, statusCache, sim, log)
	if err != nil {
		log.Error("Could not init ingest service", "error", err)
		os.Exit(1)
	}

	// Temporal worker
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Error("Could not connect to Temporal", "error", err)
		os.Exit(1)
	}
	if tc == nil {
		log.Error("TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}
	defer tc.Close()

	runner, err := ingestrun.NewRunner(log, tc, svc)
	if err != nil {
		log.Error("Could not init worker runner", "error", err)
		os.Exit(1)
	}
	if err := runner.Start(ctx); err != nil {
		log.Error("Worker failed to start", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	log.Info("Worker shutting down")
}
