// Package store wires the State Store (C1): one RepositoryManager exposing
// a typed Repository per entity plus the shared *sql.DB handle, grounded on
// the teacher's shared/db.RepositoryManager/PostgresRepositoryManager shape.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/eternalsentinel/sentinel/internal/server/migrations"
	"github.com/eternalsentinel/sentinel/internal/server/store/auditlog"
	"github.com/eternalsentinel/sentinel/internal/server/store/checkins"
	"github.com/eternalsentinel/sentinel/internal/server/store/letters"
	"github.com/eternalsentinel/sentinel/internal/server/store/pollingconfigs"
	"github.com/eternalsentinel/sentinel/internal/server/store/trustees"
	"github.com/eternalsentinel/sentinel/internal/server/store/users"
	"github.com/eternalsentinel/sentinel/internal/server/store/vault"
	"github.com/eternalsentinel/sentinel/internal/server/store/vaultitems"
)

// Manager is the State Store's entry point: a *sql.DB plus one Repository
// per entity.
type Manager interface {
	Conn() *sql.DB
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	PollingConfigs() pollingconfigs.Repository
	CheckIns() checkins.Repository
	Trustees() trustees.Repository
	Letters() letters.Repository
	AuditLog() auditlog.Repository
	Vaults() vault.Repository
	VaultItems() vaultitems.Repository
}

// PostgresManager is the Postgres-backed Manager implementation.
type PostgresManager struct {
	db             *sql.DB
	users          users.Repository
	pollingConfigs pollingconfigs.Repository
	checkIns       checkins.Repository
	trustees       trustees.Repository
	letters        letters.Repository
	auditLog       auditlog.Repository
	vaults         vault.Repository
	vaultItems     vaultitems.Repository
}

func NewPostgresManager(dsn string) (*PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	m := &PostgresManager{
		db:             db,
		users:          users.NewPostgresRepository(db),
		pollingConfigs: pollingconfigs.NewPostgresRepository(db),
		checkIns:       checkins.NewPostgresRepository(db),
		trustees:       trustees.NewPostgresRepository(db),
		letters:        letters.NewPostgresRepository(db),
		auditLog:       auditlog.NewPostgresRepository(db),
		vaults:         vault.NewPostgresRepository(db),
		vaultItems:     vaultitems.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}

	return m, nil
}

func (m *PostgresManager) Conn() *sql.DB { return m.db }

func (m *PostgresManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

func (m *PostgresManager) Users() users.Repository                   { return m.users }
func (m *PostgresManager) PollingConfigs() pollingconfigs.Repository { return m.pollingConfigs }
func (m *PostgresManager) CheckIns() checkins.Repository             { return m.checkIns }
func (m *PostgresManager) Trustees() trustees.Repository             { return m.trustees }
func (m *PostgresManager) Letters() letters.Repository               { return m.letters }
func (m *PostgresManager) AuditLog() auditlog.Repository             { return m.auditLog }
func (m *PostgresManager) Vaults() vault.Repository                  { return m.vaults }
func (m *PostgresManager) VaultItems() vaultitems.Repository         { return m.vaultItems }
