// Package source provides the data-driven source descriptor registry and
// the paginated readers that turn heterogeneous store rows into content
// units. Adding a new ingestible table or collection only requires a new
// descriptor; nothing downstream branches on store technology.
package source

import (
	"fmt"
	"regexp"

	"github.com/neighborly/moderation/internal/domain"
)

// Store identifies which reader implementation serves a descriptor.
type Store string

const (
	// StorePostgres reads via SELECT ... ORDER BY ... LIMIT/OFFSET.
	StorePostgres Store = "postgres"
	// StoreMongo reads via find with sort/skip/limit.
	StoreMongo Store = "mongo"
)

// identPattern restricts table and column names interpolated into queries.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IdentityField maps one flag-record identity slot to a source column.
type IdentityField struct {
	Name   string
	Column string
}

// Lookup resolves an identity field by matching a row value against another
// collection (e.g. a sender name against the users collection).
type Lookup struct {
	Collection    string
	MatchField    string
	IdentityField string
}

// Descriptor is the static, immutable description of one ingestible source.
type Descriptor struct {
	// Name uniquely identifies the source.
	Name string
	// Store selects the reader implementation.
	Store Store
	// Table is the table or collection name.
	Table string
	// Columns lists the columns to select (relational sources only).
	Columns []string
	// ContentField holds the free text to score. Every row returned by the
	// reader must carry it; rows where it is empty are skipped.
	ContentField string
	// IDField is the stable ordering key for pagination.
	IDField string
	// Identity maps identity slots to source columns.
	Identity []IdentityField
	// UsernameField optionally names an author display-name field that is
	// also subject to scoring. The field name doubles as the report label.
	UsernameField string
	// GroupField optionally names a grouping identifier field.
	GroupField string
	// Category tags units and flag records from this source.
	Category domain.Category
	// Lookup optionally resolves an identity field from another collection.
	Lookup *Lookup
}

// Validate checks the descriptor for the invariants the readers rely on.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor has no name")
	}
	if d.Store != StorePostgres && d.Store != StoreMongo {
		return fmt.Errorf("source %s: unknown store %q", d.Name, d.Store)
	}
	if d.Table == "" {
		return fmt.Errorf("source %s: no table", d.Name)
	}
	if d.ContentField == "" {
		return fmt.Errorf("source %s: no content field", d.Name)
	}
	if d.IDField == "" {
		return fmt.Errorf("source %s: no id field", d.Name)
	}

	switch d.Category {
	case domain.CategoryComment, domain.CategoryContent, domain.CategoryMessage:
	default:
		return fmt.Errorf("source %s: unknown category %q", d.Name, d.Category)
	}

	if d.Store == StorePostgres {
		if len(d.Columns) == 0 {
			return fmt.Errorf("source %s: relational source needs a column list", d.Name)
		}
		// Identifiers are interpolated into SQL; keep them boring.
		for _, ident := range append([]string{d.Table, d.IDField}, d.Columns...) {
			if !identPattern.MatchString(ident) {
				return fmt.Errorf("source %s: invalid identifier %q", d.Name, ident)
			}
		}
	}

	return nil
}

// Registry holds the ordered, immutable set of source descriptors.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry validates the descriptors and builds a registry preserving
// their order.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate source name %q", d.Name)
		}
		seen[d.Name] = true
	}
	return &Registry{descriptors: descriptors}, nil
}

// List returns the descriptors in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}
