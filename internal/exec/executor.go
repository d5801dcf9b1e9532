package exec

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/schema"
)

// QueryResult holds the rows returned by one read-only query
type QueryResult struct {
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"rowCount"`
}

// Executor runs generated SELECT statements against the two target
// databases. Pools are opened lazily on first use per target.
type Executor struct {
	cfg config.DatabaseConfig

	mu    sync.Mutex
	pools map[schema.Target]*sql.DB
}

// NewExecutor creates an executor; no connections are opened until a query
// or health check needs one
func NewExecutor(cfg config.DatabaseConfig) *Executor {
	return &Executor{
		cfg:   cfg,
		pools: make(map[schema.Target]*sql.DB),
	}
}

// Enabled reports whether generated SQL may be executed automatically
func (e *Executor) Enabled() bool {
	return e.cfg.ExecuteSQL
}

func (e *Executor) dsn(target schema.Target) string {
	if target == schema.TargetDMS {
		return e.cfg.DMSDSN
	}

	return e.cfg.EntitiesDSN
}

func (e *Executor) pool(target schema.Target) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.pools[target]; ok {
		return db, nil
	}

	dsn := e.dsn(target)
	if dsn == "" {
		return nil, errors.Newf(errors.ErrTypeConfig, "missing %s database URL", target).
			WithSuggestion("Set ASKDB_ENTITIES_DB_URL and ASKDB_DMS_DB_URL")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to open %s database", target)
	}

	e.pools[target] = db

	return db, nil
}

// Query runs the SQL against the target database and materializes all rows.
// Driver byte slices are converted to strings so results serialize cleanly.
func (e *Executor) Query(ctx context.Context, target schema.Target, sqlText string, params []interface{}) (*QueryResult, error) {
	db, err := e.pool(target)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeExecution, "query failed on %s", target)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to read result columns")
	}

	result := &QueryResult{Rows: []map[string]interface{}{}}

	values := make([]interface{}, len(columns))
	scanTargets := make([]interface{}, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to scan row")
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeExecution, "failed to iterate rows")
	}

	result.RowCount = len(result.Rows)

	return result, nil
}

// HealthCheck pings both databases and reports reachability per target
func (e *Executor) HealthCheck(ctx context.Context) map[schema.Target]bool {
	logger := logging.GetLogger()
	health := map[schema.Target]bool{
		schema.TargetEntities: false,
		schema.TargetDMS:      false,
	}

	for target := range health {
		db, err := e.pool(target)
		if err != nil {
			logger.WithError(err).Debugf("Health check skipped for %s", target)
			continue
		}
		if err := db.PingContext(ctx); err != nil {
			logger.WithError(err).Debugf("Health check failed for %s", target)
			continue
		}
		health[target] = true
	}

	return health
}

// Close releases every open pool
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for target, db := range e.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.pools, target)
	}

	return firstErr
}

// Diagnose explains suspicious result shapes: zero rows, or a single
// all-NULL row from an aggregate over an empty set. Returns an empty
// string when the result looks ordinary.
func Diagnose(result *QueryResult) string {
	if result == nil || result.RowCount == 0 {
		return "The query returned no rows. The filters may be too strict or the data may not exist."
	}

	if result.RowCount == 1 {
		allNull := true
		for _, value := range result.Rows[0] {
			if value != nil && value != "" {
				allNull = false
				break
			}
		}
		if allNull && len(result.Rows[0]) > 0 {
			return "The query returned only NULL values; aggregates over an empty set return NULL. The filters may have matched no rows."
		}
	}

	return ""
}

// setPool is a test hook for injecting a prepared pool
func (e *Executor) setPool(target schema.Target, db *sql.DB) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pools[target] = db
}
