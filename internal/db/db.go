package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"satya-chat/internal/config"
)

const (
	connectAttempts = 3
	connectBackoff  = 500 * time.Millisecond
)

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Configuración razonable para ambientes iniciales.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Connect crea el pool y verifica conectividad con reintentos acotados.
// Solo la adquisición inicial se reintenta; las queries posteriores fallan
// directo hacia el caller.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	var lastErr error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectBackoff * time.Duration(attempt)):
			}
		}
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			lastErr = err
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			continue
		}
		return pool, nil
	}
	return nil, lastErr
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}
