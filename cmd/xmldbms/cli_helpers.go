package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/xmldbms/internal/config"
	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/database/mysql"
	"github.com/koustreak/xmldbms/internal/database/postgres"
	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/filestore/minio"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapdef"
	"github.com/koustreak/xmldbms/internal/mapping"
)

const storePrefix = "store:"

// session is everything a command needs: configuration, a compiled map
// and the dialect to generate SQL in. db is set only with --live.
type session struct {
	cfg *config.Config
	log *logger.Logger
	m   *mapping.Map
	d   *dialect.Descriptor
	db  database.DB
}

func openSession(cmd *cobra.Command, opts *options) (*session, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(opts.configFile, opts.envFile)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger(cmd.ErrOrStderr())

	if opts.mapSource == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "--map is required")
	}
	m, err := loadMap(ctx, cfg, opts.mapSource, log)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log, m: m, d: dialect.Default()}
	if opts.live {
		db, err := connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db = db
		if s.d, err = dialect.FromCatalog(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("derive dialect: %w", err)
		}
		log.Infof("dialect derived from %s", cfg.Database.Driver)
	}
	if err := s.d.Apply(cfg.Dialect); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// loadMap reads the definition from a file, or from the object store when
// src is store:<key>.
func loadMap(ctx context.Context, cfg *config.Config, src string, log *logger.Logger) (*mapping.Map, error) {
	opts := []mapdef.Option{mapdef.WithNamespaces(cfg.Namespaces), mapdef.WithLogger(log)}

	key, fromStore := strings.CutPrefix(src, storePrefix)
	if !fromStore {
		return mapdef.LoadFile(src, opts...)
	}
	if cfg.Store == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s requires a store section in the config", src)
	}
	store, err := minio.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return mapdef.LoadFromStore(ctx, store, "", key, opts...)
}

func connect(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "--live requires a database section in the config")
	}
	switch cfg.Driver {
	case database.DriverPostgres:
		d, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	case database.DriverMySQL:
		d, err := mysql.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown database driver %q", cfg.Driver)
	}
}
