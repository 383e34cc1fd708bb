package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/relational"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig(DriverPostgres, "postgres://localhost/db").Validate())
	assert.NoError(t, DefaultConfig(DriverMySQL, "root@tcp(localhost:3306)/db").Validate())

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"no driver", &Config{DSN: "x"}},
		{"unknown driver", &Config{Driver: "oracle", DSN: "x"}},
		{"no dsn", &Config{Driver: DriverPostgres}},
		{"min over max", &Config{Driver: DriverPostgres, DSN: "x", MaxConns: 2, MinConns: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errs.IsInvalidInput(tt.cfg.Validate()))
		})
	}
}

// stubDB answers TableExists from a fixed set.
type stubDB struct {
	DB
	existing map[string]bool
	err      error
}

func (s *stubDB) TableExists(_ context.Context, id relational.TableID) (bool, error) {
	return s.existing[id.Name], s.err
}

func TestExistingTables(t *testing.T) {
	a, err := relational.NewTable(relational.TableID{Name: "A"})
	require.NoError(t, err)
	b, err := relational.NewTable(relational.TableID{Name: "B"})
	require.NoError(t, err)

	got, err := ExistingTables(context.Background(), &stubDB{existing: map[string]bool{"B": true}}, []*relational.Table{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[relational.TableID]bool{{Name: "B"}: true}, got)

	_, err = ExistingTables(context.Background(), &stubDB{err: errs.New(errs.ErrKindTimeout, "slow")}, []*relational.Table{a})
	assert.True(t, errs.IsTimeout(err))
}
