package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/neighborly/moderation/internal/config"
	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/logging"
	"github.com/neighborly/moderation/internal/source"
)

// Descriptors converts the configured source list into validated-ready
// descriptors, preserving configuration order.
func Descriptors(configs []config.SourceConfig) []source.Descriptor {
	descriptors := make([]source.Descriptor, 0, len(configs))
	for _, sc := range configs {
		descriptors = append(descriptors, descriptorFrom(sc))
	}
	return descriptors
}

func descriptorFrom(sc config.SourceConfig) source.Descriptor {
	identity := make([]source.IdentityField, 0, len(sc.Identity))
	for _, f := range sc.Identity {
		identity = append(identity, source.IdentityField{Name: f.Name, Column: f.Column})
	}

	var lookup *source.Lookup
	if sc.Lookup != nil {
		lookup = &source.Lookup{
			Collection:    sc.Lookup.Collection,
			MatchField:    sc.Lookup.MatchField,
			IdentityField: sc.Lookup.IdentityField,
		}
	}

	return source.Descriptor{
		Name:          sc.Name,
		Store:         source.Store(sc.Store),
		Table:         sc.Table,
		Columns:       sc.Columns,
		ContentField:  sc.ContentField,
		IDField:       sc.IDField,
		Identity:      identity,
		UsernameField: sc.UsernameField,
		GroupField:    sc.GroupField,
		Category:      domain.Category(sc.Category),
		Lookup:        lookup,
	}
}

// BuildRegistry validates the configured sources and builds the registry.
func BuildRegistry(cfg *config.Config) (*source.Registry, error) {
	registry, err := source.NewRegistry(Descriptors(cfg.Sources))
	if err != nil {
		return nil, fmt.Errorf("build source registry: %w", err)
	}
	return registry, nil
}

// BuildReaders creates one reader per registered descriptor, keyed by
// descriptor name. Store handles may be nil when no descriptor uses that
// store.
func BuildReaders(
	registry *source.Registry,
	db *sqlx.DB,
	mongoDB *mongo.Database,
	logger logging.Logger,
) (map[string]source.Reader, error) {
	adapter := logging.NewAdapter(logger)
	readers := make(map[string]source.Reader)

	for _, desc := range registry.List() {
		switch desc.Store {
		case source.StorePostgres:
			if db == nil {
				return nil, fmt.Errorf("source %s: no postgres connection", desc.Name)
			}
			reader, err := source.NewPostgresReader(db, desc)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", desc.Name, err)
			}
			readers[desc.Name] = reader
		case source.StoreMongo:
			if mongoDB == nil {
				return nil, fmt.Errorf("source %s: no mongo connection", desc.Name)
			}
			reader, err := source.NewMongoReader(mongoDB, desc, adapter)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", desc.Name, err)
			}
			readers[desc.Name] = reader
		default:
			return nil, fmt.Errorf("source %s: unknown store %q", desc.Name, desc.Store)
		}
	}

	return readers, nil
}
