package dbmetrics

import (
	"context"
	"database/sql"
	"time"
)

// DBExecutor общий интерфейс для *sql.DB, *sql.Tx и их обёрток
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxExecutor транзакция, через которую выполняются запросы
type TxExecutor interface {
	DBExecutor
	Commit() error
	Rollback() error
}

// Collector метрики, которые пишет обёртка
type Collector interface {
	ObserveDBQuery(operation string, duration time.Duration, err error)
	SetDBConnections(state string, value float64)
}

// DB обёртка над *sql.DB, замеряющая время запросов
type DB struct {
	db      *sql.DB
	metrics Collector
}

// Wrap оборачивает *sql.DB. metrics может быть nil.
func Wrap(db *sql.DB, metrics Collector) *DB {
	return &DB{db: db, metrics: metrics}
}

// WrapWithDefault оборачивает *sql.DB и запускает сбор статистики пула
// каждые 15 секунд до закрытия stopCh
func WrapWithDefault(db *sql.DB, metrics Collector, stopCh <-chan struct{}) *DB {
	wrapped := Wrap(db, metrics)
	go wrapped.collectPoolStats(15*time.Second, stopCh)
	return wrapped
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := d.db.ExecContext(ctx, query, args...)
	d.observe("exec", start, err)
	return res, err
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.observe("query", start, err)
	return rows, err
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := d.db.QueryRowContext(ctx, query, args...)
	d.observe("query_row", start, row.Err())
	return row
}

// BeginTx начинает транзакцию, запросы которой тоже замеряются
func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (TxExecutor, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &SqlTxWrapper{Tx: tx, metrics: d.metrics}, nil
}

// Unwrap возвращает исходный *sql.DB
func (d *DB) Unwrap() *sql.DB {
	return d.db
}

func (d *DB) observe(operation string, start time.Time, err error) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserveDBQuery(operation, time.Since(start), err)
}

func (d *DB) collectPoolStats(interval time.Duration, stopCh <-chan struct{}) {
	if d.metrics == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			stats := d.db.Stats()
			d.metrics.SetDBConnections("open", float64(stats.OpenConnections))
			d.metrics.SetDBConnections("in_use", float64(stats.InUse))
			d.metrics.SetDBConnections("idle", float64(stats.Idle))
			d.metrics.SetDBConnections("wait_count", float64(stats.WaitCount))
		}
	}
}

// SqlTxWrapper обёртка над *sql.Tx
type SqlTxWrapper struct {
	Tx      *sql.Tx
	metrics Collector
}

func (w *SqlTxWrapper) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	res, err := w.Tx.ExecContext(ctx, query, args...)
	w.observe("tx_exec", start, err)
	return res, err
}

func (w *SqlTxWrapper) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := w.Tx.QueryContext(ctx, query, args...)
	w.observe("tx_query", start, err)
	return rows, err
}

func (w *SqlTxWrapper) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := w.Tx.QueryRowContext(ctx, query, args...)
	w.observe("tx_query_row", start, row.Err())
	return row
}

func (w *SqlTxWrapper) Commit() error {
	return w.Tx.Commit()
}

func (w *SqlTxWrapper) Rollback() error {
	return w.Tx.Rollback()
}

func (w *SqlTxWrapper) observe(operation string, start time.Time, err error) {
	if w.metrics == nil {
		return
	}
	w.metrics.ObserveDBQuery(operation, time.Since(start), err)
}
