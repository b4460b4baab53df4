package runner

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ridoystarlord/pgblueprint/database"
	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/introspect"
	"github.com/ridoystarlord/pgblueprint/schema"
)

// MigrationsTable records applied migrations. The table prefix applies.
const MigrationsTable = "schema_migrations"

const (
	upMarker   = "-- Up Migration"
	downMarker = "-- Down Migration (Rollback)"
)

const (
	StateApplied  = "applied"
	StatePending  = "pending"
	StateFailed   = "failed"
	StateModified = "modified"
)

// ErrNoMigrationsDir is returned when the migrations directory is absent.
var ErrNoMigrationsDir = errors.New("migrations directory does not exist")

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	database.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Dialect compiles the tracking table and quotes its name.
type Dialect interface {
	grammar.StatementCompiler
	Table(table string) string
	WrapTable(table string) string
}

// MigrationRecord is a row of the migrations table.
type MigrationRecord struct {
	Filename      string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	ExecutedBy    string
	Status        string
	ErrorMessage  string
	Checksum      string
}

// MigrationStatus is the state of one migration file.
type MigrationStatus struct {
	Name      string
	State     string
	AppliedAt time.Time
	Error     string
}

// Migration is a parsed migration file.
type Migration struct {
	Name string
	Up   string
	Down string
}

// Runner applies and rolls back the migration files of one directory.
type Runner struct {
	db        DB
	dialect   Dialect
	inspector *introspect.Inspector
	dir       string
	log       zerolog.Logger
	now       func() time.Time
}

func New(db DB, dialect Dialect, dir string, log zerolog.Logger) *Runner {
	return &Runner{
		db:        db,
		dialect:   dialect,
		inspector: introspect.New(db, dialect, ""),
		dir:       dir,
		log:       log.With().Str("component", "runner").Logger(),
		now:       time.Now,
	}
}

// migrationsBlueprint describes the tracking table.
func migrationsBlueprint() *schema.Blueprint {
	b := schema.NewBlueprint(MigrationsTable)
	b.Create()
	b.Increments("id")
	b.String("filename", 0).Unique()
	b.TimestampTz("applied_at").CurrentTimestamp()
	b.BigInteger("execution_ms").WithDefault(0)
	b.String("executed_by", 0).Nullable()
	b.String("status", 16).WithDefault(StateApplied)
	b.Text("error_message").Nullable()
	b.Char("checksum", 64)
	return b
}

// ensureMigrationsTable creates the tracking table unless it exists.
func (r *Runner) ensureMigrationsTable(ctx context.Context) error {
	exists, err := r.inspector.HasTable(ctx, MigrationsTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	statements, err := grammar.ToSQL(r.dialect, migrationsBlueprint())
	if err != nil {
		return fmt.Errorf("compiling %s: %w", MigrationsTable, err)
	}
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", MigrationsTable, err)
	}
	r.log.Info().Str("table", r.dialect.Table(MigrationsTable)).Msg("migrations table created")
	return nil
}

func (r *Runner) records(ctx context.Context) (map[string]MigrationRecord, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
	SELECT filename, applied_at, execution_ms, coalesce(executed_by, ''), status,
	       coalesce(error_message, ''), checksum
	FROM %s`, r.dialect.WrapTable(MigrationsTable)))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	records := map[string]MigrationRecord{}
	for rows.Next() {
		var rec MigrationRecord
		var ms int64
		if err := rows.Scan(&rec.Filename, &rec.AppliedAt, &ms, &rec.ExecutedBy, &rec.Status, &rec.ErrorMessage, &rec.Checksum); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		rec.ExecutionTime = time.Duration(ms) * time.Millisecond
		records[rec.Filename] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migration records: %w", err)
	}
	return records, nil
}

// Apply runs every pending migration in file order, each in its own
// transaction, and returns the names applied. It stops at the first failure.
func (r *Runner) Apply(ctx context.Context) ([]string, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	pending, err := r.pending(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range pending {
		if err := r.apply(ctx, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}

// Preview returns the pending migrations without running them.
func (r *Runner) Preview(ctx context.Context) ([]Migration, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	return r.pending(ctx)
}

func (r *Runner) pending(ctx context.Context) ([]Migration, error) {
	records, err := r.records(ctx)
	if err != nil {
		return nil, err
	}
	files, err := ListFiles(r.dir)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, name := range files {
		if rec, ok := records[name]; ok && rec.Status == StateApplied {
			continue
		}
		m, err := r.load(name)
		if err != nil {
			return nil, err
		}
		pending = append(pending, m)
	}
	return pending, nil
}

func (r *Runner) load(name string) (Migration, error) {
	content, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return Migration{}, fmt.Errorf("read file %s: %w", name, err)
	}
	up, down, err := ParseMigrationFile(string(content))
	if err != nil {
		return Migration{}, fmt.Errorf("migration file %s: %w", name, err)
	}
	return Migration{Name: name, Up: up, Down: down}, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	log := r.log.With().Str("file", m.Name).Logger()
	log.Info().Msg("applying migration")

	start := r.now()
	table := r.dialect.WrapTable(MigrationsTable)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if Executable(m.Up) {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (filename, execution_ms, executed_by, status, error_message, checksum)
		VALUES ($1, $2, $3, $4, NULL, $5)
		ON CONFLICT (filename) DO UPDATE SET
			applied_at = CURRENT_TIMESTAMP(0), execution_ms = EXCLUDED.execution_ms,
			executed_by = EXCLUDED.executed_by, status = EXCLUDED.status,
			error_message = NULL, checksum = EXCLUDED.checksum`, table),
			m.Name, time.Since(start).Milliseconds(), currentUser(), StateApplied, Checksum(m.Up))
		return err
	})
	elapsed := time.Since(start)
	if err == nil {
		log.Info().Dur("duration", elapsed).Msg("migration applied")
		return nil
	}

	log.Error().Err(err).Dur("duration", elapsed).Msg("migration failed")
	_, recErr := r.db.Exec(ctx, fmt.Sprintf(`
	INSERT INTO %s (filename, execution_ms, executed_by, status, error_message, checksum)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (filename) DO UPDATE SET
		applied_at = CURRENT_TIMESTAMP(0), execution_ms = EXCLUDED.execution_ms,
		executed_by = EXCLUDED.executed_by, status = EXCLUDED.status,
		error_message = EXCLUDED.error_message, checksum = EXCLUDED.checksum`, table),
		m.Name, elapsed.Milliseconds(), currentUser(), StateFailed, err.Error(), Checksum(m.Up))
	if recErr != nil {
		return fmt.Errorf("executing migration %s: %w (recording failure: %v)", m.Name, err, recErr)
	}
	return fmt.Errorf("executing migration %s: %w", m.Name, err)
}

// Rollback undoes the last steps applied migrations, most recent first, and
// returns the names rolled back.
func (r *Runner) Rollback(ctx context.Context, steps int) ([]string, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
	SELECT filename FROM %s WHERE status = $1
	ORDER BY applied_at DESC, filename DESC
	LIMIT $2`, r.dialect.WrapTable(MigrationsTable)), StateApplied, steps)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan filename: %w", err)
	}
	if len(names) < steps {
		r.log.Warn().Int("requested", steps).Int("available", len(names)).Msg("fewer migrations applied than requested")
	}

	var rolledBack []string
	for _, name := range names {
		m, err := r.load(name)
		if err != nil {
			return rolledBack, err
		}
		if err := r.rollback(ctx, m); err != nil {
			return rolledBack, err
		}
		rolledBack = append(rolledBack, name)
	}
	return rolledBack, nil
}

func (r *Runner) rollback(ctx context.Context, m Migration) error {
	log := r.log.With().Str("file", m.Name).Logger()
	log.Info().Msg("rolling back migration")

	start := r.now()
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if Executable(m.Down) {
			if _, err := tx.Exec(ctx, m.Down); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE filename = $1`, r.dialect.WrapTable(MigrationsTable)), m.Name)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("rollback failed")
		return fmt.Errorf("executing rollback for %s: %w", m.Name, err)
	}
	log.Info().Dur("duration", time.Since(start)).Msg("migration rolled back")
	return nil
}

// Status reports every migration file plus records whose file is gone.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	records, err := r.records(ctx)
	if err != nil {
		return nil, err
	}
	files, err := ListFiles(r.dir)
	if err != nil {
		return nil, err
	}

	checksums := make(map[string]string, len(files))
	for _, name := range files {
		m, err := r.load(name)
		if err != nil {
			return nil, err
		}
		checksums[name] = Checksum(m.Up)
	}
	return Classify(files, checksums, records), nil
}

// Classify combines files on disk with recorded migrations. A recorded
// migration whose up section changed since it ran is reported as modified.
func Classify(files []string, checksums map[string]string, records map[string]MigrationRecord) []MigrationStatus {
	seen := make(map[string]bool, len(files))
	out := make([]MigrationStatus, 0, len(files))
	for _, name := range files {
		seen[name] = true
		rec, ok := records[name]
		st := MigrationStatus{Name: name, State: StatePending}
		switch {
		case !ok:
		case rec.Status == StateFailed:
			st.State, st.AppliedAt, st.Error = StateFailed, rec.AppliedAt, rec.ErrorMessage
		case rec.Checksum != checksums[name]:
			st.State, st.AppliedAt = StateModified, rec.AppliedAt
		default:
			st.State, st.AppliedAt = StateApplied, rec.AppliedAt
		}
		out = append(out, st)
	}

	var orphaned []string
	for name := range records {
		if !seen[name] {
			orphaned = append(orphaned, name)
		}
	}
	sort.Strings(orphaned)
	for _, name := range orphaned {
		rec := records[name]
		out = append(out, MigrationStatus{Name: name, State: rec.Status, AppliedAt: rec.AppliedAt, Error: "file missing"})
	}
	return out
}

// ListFiles returns the .sql files of dir in name order.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoMigrationsDir, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ParseMigrationFile splits a migration file into its up and down sections.
func ParseMigrationFile(content string) (up, down string, err error) {
	upAt := strings.Index(content, upMarker)
	if upAt < 0 {
		return "", "", fmt.Errorf("missing %q section", upMarker)
	}
	downAt := strings.Index(content, downMarker)
	if downAt < 0 {
		return "", "", fmt.Errorf("missing %q section", downMarker)
	}
	if downAt < upAt {
		return "", "", fmt.Errorf("rollback section comes before the up section")
	}
	return section(content[upAt+len(upMarker) : downAt]), section(content[downAt+len(downMarker):]), nil
}

// section drops the underline that follows a section header.
func section(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if line, rest, ok := strings.Cut(s, "\n"); ok && strings.Trim(strings.TrimSpace(line), "-= ") == "" {
		s = rest
	}
	return strings.TrimSpace(s)
}

// Executable reports whether sql holds anything besides comments.
func Executable(sql string) bool {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}

// Checksum is the hex sha256 of sql.
func Checksum(sql string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(sql)))
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
