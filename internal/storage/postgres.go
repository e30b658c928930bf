package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "arxivrelay/pkg/logx"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS relay_outcomes (
	id               BIGSERIAL PRIMARY KEY,
	run_id           TEXT        NOT NULL,
	at               TIMESTAMPTZ NOT NULL,
	topic_id         TEXT        NOT NULL,
	title            TEXT        NOT NULL,
	mode             TEXT,
	fetched          INTEGER     NOT NULL DEFAULT 0,
	filtered         INTEGER     NOT NULL DEFAULT 0,
	skipped_bad_date INTEGER     NOT NULL DEFAULT 0,
	capped           BOOLEAN     NOT NULL DEFAULT FALSE,
	posted_ok        INTEGER     NOT NULL DEFAULT 0,
	posted_fail      INTEGER     NOT NULL DEFAULT 0,
	skipped          BOOLEAN     NOT NULL DEFAULT FALSE,
	err              TEXT,
	took_ms          BIGINT      NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS relay_outcomes_topic_at ON relay_outcomes(topic_id, at);
`

type postgresStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("STORE_DSN is required for postgres driver")
	}

	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pcfg.MaxConns = 2
	pcfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("postgres store opened", logx.String("host", pcfg.ConnConfig.Host))
	return &postgresStore{pool: pool, log: log}, nil
}

func (s *postgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *postgresStore) AppendOutcome(ctx context.Context, r Record) error {
	if s == nil || s.pool == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO relay_outcomes (run_id, at, topic_id, title, mode, fetched, filtered, skipped_bad_date,
		                             capped, posted_ok, posted_fail, skipped, err, took_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.RunID, r.At, r.TopicID, r.Title, nullStr(r.Mode),
		r.Fetched, r.Filtered, r.SkippedBadDate, r.Capped, r.PostedOK, r.PostedFail,
		r.Skipped, nullStr(r.Error), r.TookMS,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}
