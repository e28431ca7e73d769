package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/neighborly/moderation/internal/config"
	"github.com/neighborly/moderation/internal/database"
	"github.com/neighborly/moderation/internal/logging"
)

// NeedsPostgres reports whether any configured source or sink requires the
// relational store.
func NeedsPostgres(cfg *config.Config) bool {
	if cfg.Reports.Enabled {
		return true
	}
	for _, src := range cfg.Sources {
		if src.Store == "postgres" {
			return true
		}
	}
	return false
}

// NeedsMongo reports whether any configured source requires the document
// store.
func NeedsMongo(cfg *config.Config) bool {
	for _, src := range cfg.Sources {
		if src.Store == "mongo" {
			return true
		}
	}
	return false
}

// SetupPostgres creates the relational store connection.
func SetupPostgres(cfg *config.Config, logger logging.Logger) (*sqlx.DB, error) {
	dbConfig := database.PostgresConfig{
		URI:      cfg.Database.URI,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	logger.Info("Connecting to PostgreSQL database",
		logging.String("host", dbConfig.Host),
		logging.Int("port", dbConfig.Port),
		logging.String("database", dbConfig.DBName),
	)

	db, err := database.NewPostgresConnection(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database connected successfully")
	return db, nil
}

// SetupMongo connects to the document store and returns the configured
// database handle.
func SetupMongo(ctx context.Context, cfg *config.Config, logger logging.Logger) (*mongo.Client, *mongo.Database, error) {
	logger.Info("Connecting to MongoDB", logging.String("database", cfg.Mongo.Database))

	client, err := database.NewMongoClient(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	logger.Info("MongoDB connected successfully")
	return client, client.Database(cfg.Mongo.Database), nil
}
