package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"gosupermarket_api/config"
	feedapp "gosupermarket_api/internal/feed/app"
	feedstate "gosupermarket_api/internal/feed/state"
	feedstorage "gosupermarket_api/internal/feed/storage"
	"gosupermarket_api/internal/feed/transport"
	pricingapp "gosupermarket_api/internal/pricing/app"
	"gosupermarket_api/internal/pricing/app/web"
	"gosupermarket_api/internal/pricing/app/web/handlers"
	"gosupermarket_api/internal/pricing/business"
	"gosupermarket_api/internal/pricing/storage"
	"gosupermarket_api/pkg/dbconnect"
	"gosupermarket_api/pkg/dbconnect/migration"
	"gosupermarket_api/pkg/dbconnect/postgres"
	"gosupermarket_api/pkg/logger"
	"gosupermarket_api/pkg/retry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := loadConfig()
	baseLog := logger.NewLogger(os.Stdout, "[app]")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Printf("shutdown signal received")
		cancel()
	}()

	var connector dbconnect.Database = postgres.NewPgConnector(&cfg.Postgres)
	db, err := connector.Connect()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %s", err)
	}
	defer db.Close()

	migrationApply := []migration.MigrationInterface{
		&storage.MigrationsSchema{},
		&storage.PricesSchema{},
		&storage.SupermarketsTable{},
		&storage.ProductsTable{},
		&storage.ObservationsTable{},
	}
	for _, _migration := range migrationApply {
		if err := _migration.UpMigration(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}
	log.Println("Pricing migrations applied successfully!")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	tracker := feedstate.NewTracker(feedstate.NewRedisKV(redisClient))
	queue := transport.NewRedisQueue(redisClient, cfg.Consumer.QueueName, cfg.Consumer.LeaseTimeout, transport.MaxMessageBytes)
	dlq := transport.NewRedisQueue(redisClient, cfg.Consumer.DLQName, cfg.Consumer.LeaseTimeout, transport.MaxMessageBytes)

	store := storage.NewPostgresStore(db)
	priceService := business.NewPriceService(store)
	consumer := business.NewConsumer(store, baseLog.WithPrefix("[consumer]"))

	extractorServer := feedapp.NewExtractorServer(
		feedstorage.NewFSObjectStore(cfg.Extractor.FeedRoot),
		tracker,
		queue,
		transport.MaxMessageBytes,
		cfg.Extractor.PollInterval,
		retry.DefaultPolicy(),
		baseLog.WithPrefix("[extractor]"),
	)
	consumerServer := pricingapp.NewConsumerServer(
		queue,
		dlq,
		consumer,
		tracker,
		cfg.Consumer.Workers,
		cfg.Consumer.BatchSize,
		cfg.Consumer.WriteRate,
		baseLog.WithPrefix("[apply]"),
	)

	wg := sync.WaitGroup{}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := extractorServer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("extractor exited: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := consumerServer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("consumer exited: %v", err)
		}
	}()

	go web.SetupRoutes(cfg.API.Port,
		handlers.NewPriceHandler(connector, priceService),
		handlers.NewSupermarketHandler(connector, priceService),
	)

	wg.Wait()
}

func loadConfig() *config.AppConfig {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Printf("config file %s not loaded (%v), falling back to env", path, err)
		return config.DefaultConfig()
	}
	return cfg
}
