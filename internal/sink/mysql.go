package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/pkg/contracts/domain"
)

// DefaultBatchSize is the number of rows per INSERT statement
const DefaultBatchSize = 500

// MySQLSink mirrors the warehouse tables into a MySQL database.
// Every Replace swaps the full contents of each table inside one transaction.
type MySQLSink struct {
	db        *sql.DB
	batchSize int
	logger    *slog.Logger
}

// Open connects to the database named by cfg.MySQLDSN. Timestamps are
// always exchanged in UTC.
func Open(cfg config.SinkConfig, logger *slog.Logger) (*MySQLSink, error) {
	dsn, err := mysql.ParseDSN(cfg.MySQLDSN)
	if err != nil {
		return nil, errors.NewConfigError("invalid MySQL DSN", err)
	}
	dsn.ParseTime = true
	dsn.Loc = time.UTC

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, errors.NewConfigError("invalid MySQL connection settings", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	return New(db, cfg.BatchSize, logger), nil
}

// New wraps an open database handle
func New(db *sql.DB, batchSize int, logger *slog.Logger) *MySQLSink {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MySQLSink{
		db:        db,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "mysql_sink")),
	}
}

// Replace creates missing tables and replaces their rows with tables
func (s *MySQLSink) Replace(ctx context.Context, tables *domain.WarehouseTables) error {
	if tables == nil {
		return errors.NewAppValidationError("no warehouse tables to load")
	}

	for _, t := range warehouseTables(tables) {
		start := time.Now()
		if err := s.replaceTable(ctx, t); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "table replaced",
			slog.String("table", t.name),
			slog.Int("rows", len(t.rows)),
			slog.Duration("duration", time.Since(start)))
	}
	return nil
}

func (s *MySQLSink) replaceTable(ctx context.Context, t table) (err error) {
	if _, err := s.db.ExecContext(ctx, createTableSQL(t)); err != nil {
		return errors.NewIOError(fmt.Sprintf("create table %s", t.name), err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIOError(fmt.Sprintf("begin transaction for %s", t.name), err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.WarnContext(ctx, "rollback failed",
					slog.String("table", t.name),
					slog.String("error", rbErr.Error()))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM `%s`", t.name)); err != nil {
		return errors.NewIOError(fmt.Sprintf("clear table %s", t.name), err)
	}

	for start := 0; start < len(t.rows); start += s.batchSize {
		end := min(start+s.batchSize, len(t.rows))
		batch := t.rows[start:end]

		args := make([]any, 0, len(batch)*len(t.columns))
		for _, row := range batch {
			args = append(args, row...)
		}
		if _, err = tx.ExecContext(ctx, insertSQL(t, len(batch)), args...); err != nil {
			return errors.NewIOError(fmt.Sprintf("insert rows %d-%d into %s", start, end, t.name), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.NewIOError(fmt.Sprintf("commit %s", t.name), err)
	}
	return nil
}

// Close releases the database handle
func (s *MySQLSink) Close() error {
	return s.db.Close()
}
