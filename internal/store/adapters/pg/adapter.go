// Package pg implementa el adapter PostgreSQL sobre pgxpool.
//
// Las transacciones corren en READ COMMITTED; las lecturas de dispositivos y
// códigos TOTP dentro de una transacción bloquean la fila del usuario
// (SELECT ... FOR UPDATE). Transacciones anidadas usan savepoints.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// AdapterName nombre con el que se registra el adapter.
const AdapterName = "postgres"

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return AdapterName }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pg: DSN is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string { return AdapterName }

func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *pgConnection) AuthRecipe() repository.AuthRecipeRepository { return &authRecipeRepo{c} }

func (c *pgConnection) EmailPassword() repository.EmailPasswordRepository {
	return &recipeUserRepo{c, repository.RecipeEmailPassword}
}

func (c *pgConnection) ThirdParty() repository.ThirdPartyRepository {
	return &recipeUserRepo{c, repository.RecipeThirdParty}
}

func (c *pgConnection) Passwordless() repository.PasswordlessRepository {
	return &recipeUserRepo{c, repository.RecipePasswordless}
}

func (c *pgConnection) UserIDMapping() repository.UserIDMappingRepository { return &mappingRepo{c} }

func (c *pgConnection) UserMetadata() repository.UserMetadataRepository           { return &nonAuthRepo{c} }
func (c *pgConnection) Sessions() repository.SessionRepository                    { return &nonAuthRepo{c} }
func (c *pgConnection) EmailVerification() repository.EmailVerificationRepository { return &nonAuthRepo{c} }
func (c *pgConnection) UserRoles() repository.UserRolesRepository                 { return &nonAuthRepo{c} }

func (c *pgConnection) TOTP() repository.TOTPRepository { return &totpRepo{c} }

// ─── Transacciones ───

// querier es lo común entre *pgxpool.Pool y pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{ pool *pgxpool.Pool }

func (c *pgConnection) tx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{c.pool}).(pgx.Tx)
	return tx, ok
}

// q retorna la transacción de ctx o el pool.
func (c *pgConnection) q(ctx context.Context) querier {
	if tx, ok := c.tx(ctx); ok {
		return tx
	}
	return c.pool
}

func (c *pgConnection) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if outer, ok := c.tx(ctx); ok {
		tx, err = outer.Begin(ctx) // savepoint
	} else {
		tx, err = c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	}
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{c.pool}, tx)); err != nil {
		return repository.WrapTx(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

// atomic corre fn en una transacción (o savepoint) y retorna el error de fn sin envolver.
func (c *pgConnection) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return repository.UnwrapTx(c.RunInTx(ctx, fn))
}

// forUpdate agrega el lock de fila sólo dentro de una transacción.
func (c *pgConnection) forUpdate(ctx context.Context) string {
	if _, ok := c.tx(ctx); ok {
		return " FOR UPDATE"
	}
	return ""
}

// ─── Errores ───

// mapErr traduce violaciones de constraint al contrato del repositorio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}
