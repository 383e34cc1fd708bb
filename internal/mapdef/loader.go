// Package mapdef builds a mapping.Map from a YAML map definition.
//
// Usage:
//
//	m, err := mapdef.LoadFile("orders.yaml", mapdef.WithNamespaces(cfg.Namespaces))
//	if err != nil { ... }
//	report, err := inverter.New(log).CreateDatabaseView(m)
package mapdef

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/filestore"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapping"
)

type options struct {
	namespaces map[string]string
	log        *logger.Logger
}

// Option configures Build.
type Option func(*options)

// WithNamespaces binds prefixes before the definition's own namespaces.
func WithNamespaces(ns map[string]string) Option {
	return func(o *options) { o.namespaces = ns }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Parse decodes a YAML map definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse map definition", err)
	}
	return &def, nil
}

// Load parses data and builds the map.
func Load(data []byte, opts ...Option) (*mapping.Map, error) {
	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return def.Build(opts...)
}

// LoadFile reads and builds the map definition at path.
func LoadFile(path string, opts ...Option) (*mapping.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("failed to read map file %s", path), err)
	}
	return Load(data, opts...)
}

// LoadFromStore reads and builds the map definition stored at key.
func LoadFromStore(ctx context.Context, s filestore.Store, bucket, key string, opts ...Option) (*mapping.Map, error) {
	data, err := filestore.ReadAll(ctx, s, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("map definition %s: %w", key, err)
	}
	return Load(data, opts...)
}
