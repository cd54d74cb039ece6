// Package memory implementa el adapter in-memory.
//
// Cumple el mismo contrato de capacidades que el adapter de PostgreSQL:
// transacciones re-entrantes con rollback, unicidad y borrado en cascada.
// Útil para desarrollo y tests; no persiste nada.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// AdapterName nombre con el que se registra el adapter.
const AdapterName = "memory"

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return AdapterName }

// Connect retorna la instancia compartida para cfg.DSN.
// Dos storages con el mismo DSN ven los mismos datos.
func (a *memoryAdapter) Connect(_ context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return Open(cfg.DSN), nil
}

var (
	instancesMu sync.Mutex
	instances   = make(map[string]*DB)
)

// Open retorna la instancia con nombre dsn, creándola si no existe.
func Open(dsn string) *DB {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	if db, ok := instances[dsn]; ok {
		return db
	}
	db := &DB{name: dsn, data: newState()}
	instances[dsn] = db
	return db
}

// Drop descarta la instancia con nombre dsn.
func Drop(dsn string) {
	instancesMu.Lock()
	delete(instances, dsn)
	instancesMu.Unlock()
}

// DB es una instancia de storage en memoria. Implementa store.AdapterConnection.
type DB struct {
	name string

	mu   sync.Mutex
	data *state
}

func (db *DB) Name() string { return AdapterName }

func (db *DB) Ping(context.Context) error { return nil }

// Close no libera datos: la instancia sigue disponible vía Open hasta Drop.
func (db *DB) Close() error { return nil }

// ─── Repositorios ───

func (db *DB) AuthRecipe() repository.AuthRecipeRepository { return &authRecipeRepo{db: db} }

func (db *DB) EmailPassword() repository.EmailPasswordRepository {
	return &recipeUserRepo{db: db, recipe: repository.RecipeEmailPassword}
}

func (db *DB) ThirdParty() repository.ThirdPartyRepository {
	return &recipeUserRepo{db: db, recipe: repository.RecipeThirdParty}
}

func (db *DB) Passwordless() repository.PasswordlessRepository {
	return &recipeUserRepo{db: db, recipe: repository.RecipePasswordless}
}

func (db *DB) UserIDMapping() repository.UserIDMappingRepository { return &mappingRepo{db: db} }

func (db *DB) UserMetadata() repository.UserMetadataRepository           { return &nonAuthRepo{db: db} }
func (db *DB) Sessions() repository.SessionRepository                    { return &nonAuthRepo{db: db} }
func (db *DB) EmailVerification() repository.EmailVerificationRepository { return &nonAuthRepo{db: db} }
func (db *DB) UserRoles() repository.UserRolesRepository                 { return &nonAuthRepo{db: db} }

func (db *DB) TOTP() repository.TOTPRepository { return &totpRepo{db: db} }

// ─── Transacciones ───

type txKey struct{ db *DB }

// RunInTx toma el lock de la instancia (serializa todo el storage) y restaura
// un snapshot si fn falla. Llamadas anidadas con el ctx de fn no vuelven a
// tomar el lock y hacen rollback sólo de su propio tramo, como un savepoint.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if db.inTx(ctx) {
		snapshot := db.data.clone()
		if err := fn(ctx); err != nil {
			db.data = snapshot
			return repository.WrapTx(err)
		}
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.data.clone()
	txCtx := context.WithValue(ctx, txKey{db: db}, true)
	err := fn(txCtx)
	if err == nil {
		// cancelación antes del commit: nada queda escrito
		err = ctx.Err()
	}
	if err != nil {
		db.data = snapshot
		return repository.WrapTx(err)
	}
	return nil
}

func (db *DB) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{db: db}).(bool)
	return v
}

// do ejecuta fn con el lock tomado, salvo que ctx ya esté en una
// transacción de esta instancia.
func (db *DB) do(ctx context.Context, fn func(s *state) error) error {
	if db.inTx(ctx) {
		return fn(db.data)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.data)
}
