package elo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/park285/elo-ladder-bot/internal/domain"
	coreelo "github.com/park285/elo-ladder-bot/internal/elo"
	"github.com/park285/elo-ladder-bot/internal/util"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var entryColumns = []string{
	"team_id", "game_type_id", "team_size", "member_key",
	"rating", "last_rating_change", "created_at", "updated_at",
}

type gameTypeRow struct {
	ID        string    `db:"id"`
	TeamID    string    `db:"team_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r gameTypeRow) toDomain() *domain.GameType {
	return &domain.GameType{ID: r.ID, TeamID: r.TeamID, Name: r.Name, CreatedAt: r.CreatedAt}
}

type entryRow struct {
	TeamID           string    `db:"team_id"`
	GameTypeID       string    `db:"game_type_id"`
	TeamSize         int       `db:"team_size"`
	MemberKey        string    `db:"member_key"`
	Rating           float64   `db:"rating"`
	LastRatingChange float64   `db:"last_rating_change"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r entryRow) toDomain() *domain.RatingEntry {
	return &domain.RatingEntry{
		TeamID:           r.TeamID,
		GameTypeID:       r.GameTypeID,
		TeamSize:         r.TeamSize,
		MemberKey:        r.MemberKey,
		Rating:           r.Rating,
		LastRatingChange: r.LastRatingChange,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type sqlrepo struct {
	db     *sqlx.DB
	driver string
	sb     sq.StatementBuilderType
	now    func() time.Time
}

// OpenSQL connects to a postgres or sqlite3 database. SQLite is limited to a
// single connection so writers never race each other on the file lock.
func OpenSQL(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLRepository wraps an open database. The schema must already be
// migrated (see Migrate).
func NewSQLRepository(db *sqlx.DB) Repository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if db.DriverName() == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &sqlrepo{
		db:     db,
		driver: db.DriverName(),
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:    time.Now,
	}
}

// Migrate applies (or with down=true reverts) the embedded schema migrations.
// It does not close db.
func Migrate(db *sqlx.DB, down bool) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	var drv database.Driver
	switch db.DriverName() {
	case DriverPostgres:
		drv, err = migratepg.WithInstance(db.DB, &migratepg.Config{})
	case DriverSQLite:
		drv, err = migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", db.DriverName())
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), drv)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *sqlrepo) RegisterGameType(ctx context.Context, teamID, name string) (*domain.GameType, error) {
	gt := &domain.GameType{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Name:      strings.TrimSpace(name),
		CreatedAt: r.now().UTC(),
	}
	query, args, err := r.sb.Insert("game_types").
		Columns("id", "team_id", "name", "created_at").
		Values(gt.ID, gt.TeamID, gt.Name, gt.CreatedAt).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrGameTypeExists
		}
		return nil, fmt.Errorf("insert game type: %w", err)
	}
	return gt, nil
}

func (r *sqlrepo) FindGameType(ctx context.Context, teamID, name string) (*domain.GameType, error) {
	query, args, err := r.sb.Select("id", "team_id", "name", "created_at").
		From("game_types").
		Where(sq.Eq{"team_id": teamID, "name": strings.TrimSpace(name)}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var row gameTypeRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select game type: %w", err)
	}
	return row.toDomain(), nil
}

func (r *sqlrepo) ListGameTypes(ctx context.Context, teamID string) ([]*domain.GameType, error) {
	query, args, err := r.sb.Select("id", "team_id", "name", "created_at").
		From("game_types").
		Where(sq.Eq{"team_id": teamID}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []gameTypeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select game types: %w", err)
	}
	out := make([]*domain.GameType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *sqlrepo) UpdatePair(ctx context.Context, k1, k2 domain.EntryKey, initial float64, fn PairUpdateFunc) (*domain.RatingEntry, *domain.RatingEntry, error) {
	if err := validPair(k1, k2); err != nil {
		return nil, nil, err
	}

	var t1, t2 *domain.RatingEntry
	err := util.Transaction(ctx, r.db, func(tx *sqlx.Tx) error {
		now := r.now().UTC()

		// Rows are created and locked in member key order so two matches
		// over the same pair cannot deadlock.
		ordered := []domain.EntryKey{k1, k2}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].MemberKey < ordered[j].MemberKey })
		for _, k := range ordered {
			if err := r.ensureEntry(ctx, tx, k, initial, now); err != nil {
				return err
			}
		}

		sel := r.sb.Select(entryColumns...).
			From("rating_entries").
			Where(sq.Eq{
				"team_id":      k1.TeamID,
				"game_type_id": k1.GameTypeID,
				"team_size":    k1.TeamSize,
				"member_key":   []string{ordered[0].MemberKey, ordered[1].MemberKey},
			}).
			OrderBy("member_key")
		if r.driver == DriverPostgres {
			sel = sel.Suffix("FOR UPDATE")
		}
		query, args, err := sel.ToSql()
		if err != nil {
			return err
		}
		var rows []entryRow
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("lock rating entries: %w", err)
		}
		for _, row := range rows {
			switch row.MemberKey {
			case k1.MemberKey:
				t1 = row.toDomain()
			case k2.MemberKey:
				t2 = row.toDomain()
			}
		}
		if t1 == nil || t2 == nil {
			return fmt.Errorf("rating entries missing after insert")
		}

		if err := fn(t1, t2); err != nil {
			return err
		}
		t1.UpdatedAt, t2.UpdatedAt = now, now
		for _, e := range []*domain.RatingEntry{t1, t2} {
			if err := r.writeEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isConflict(err) {
			return nil, nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, nil, err
	}
	return t1, t2, nil
}

func (r *sqlrepo) ensureEntry(ctx context.Context, tx *sqlx.Tx, k domain.EntryKey, initial float64, now time.Time) error {
	query, args, err := r.sb.Insert("rating_entries").
		Columns(entryColumns...).
		Values(k.TeamID, k.GameTypeID, k.TeamSize, k.MemberKey, initial, 0.0, now, now).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rating entry: %w", err)
	}
	return nil
}

func (r *sqlrepo) writeEntry(ctx context.Context, tx *sqlx.Tx, e *domain.RatingEntry) error {
	query, args, err := r.sb.Update("rating_entries").
		SetMap(sq.Eq{
			"rating":             e.Rating,
			"last_rating_change": e.LastRatingChange,
			"updated_at":         e.UpdatedAt,
		}).
		Where(sq.Eq{
			"team_id":      e.TeamID,
			"game_type_id": e.GameTypeID,
			"team_size":    e.TeamSize,
			"member_key":   e.MemberKey,
		}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update rating entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("update rating entry %s: %w", e.MemberKey, ErrConflict)
	}
	return nil
}

func (r *sqlrepo) ListPartition(ctx context.Context, p domain.Partition) ([]*domain.RatingEntry, error) {
	return r.selectEntries(ctx, sq.Eq{
		"team_id":      p.TeamID,
		"game_type_id": p.GameTypeID,
		"team_size":    p.TeamSize,
	})
}

func (r *sqlrepo) ListEntriesForMember(ctx context.Context, teamID, member string) ([]*domain.RatingEntry, error) {
	// LIKE narrows the scan; HasMember drops identities that only share a
	// substring.
	candidates, err := r.selectEntries(ctx, sq.And{
		sq.Eq{"team_id": teamID},
		sq.Like{"member_key": "%" + member + "%"},
	})
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, e := range candidates {
		if coreelo.HasMember(e.MemberKey, member) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *sqlrepo) selectEntries(ctx context.Context, where sq.Sqlizer) ([]*domain.RatingEntry, error) {
	query, args, err := r.sb.Select(entryColumns...).
		From("rating_entries").
		Where(where).
		OrderBy("rating DESC", "member_key").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []entryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select rating entries: %w", err)
	}
	out := make([]*domain.RatingEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *sqlrepo) Close() error { return r.db.Close() }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}
