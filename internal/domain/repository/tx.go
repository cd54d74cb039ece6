package repository

import (
	"context"
	"errors"
)

// Transactor provee scoping transaccional.
type Transactor interface {
	// RunInTx ejecuta fn dentro de una transacción del storage.
	// Si fn retorna error se hace rollback y el error vuelve envuelto en *TxError.
	// Si ctx ya transporta una transacción de este mismo storage, fn corre
	// anidada en ella (savepoint), lo que permite llamadas re-entrantes.
	// Los repositorios del storage que reciban el ctx de fn operan dentro de la transacción.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxError es el error genérico de lógica transaccional: envuelve lo que fn
// retornó. El llamador lo desenvuelve apenas cruza el límite de la transacción.
type TxError struct {
	Err error
}

func (e *TxError) Error() string { return "transaction: " + e.Err.Error() }

func (e *TxError) Unwrap() error { return e.Err }

// WrapTx envuelve err en *TxError sin duplicar el wrapper en transacciones anidadas.
func WrapTx(err error) error {
	if err == nil {
		return nil
	}
	var txErr *TxError
	if errors.As(err, &txErr) {
		return err
	}
	return &TxError{Err: err}
}

// UnwrapTx recupera el error tipado que fn retornó.
// Errores que no vienen de fn (begin/commit) se retornan tal cual.
func UnwrapTx(err error) error {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Err
	}
	return err
}

// InTx ejecuta fn en una transacción y retorna su resultado.
// Un resultado con variante de error (ej: código inválido que igual debe
// persistirse) se retorna como valor para que la transacción haga commit;
// el llamador decide el error después del commit.
func InTx[T any](ctx context.Context, tx Transactor, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, UnwrapTx(err)
	}
	return out, nil
}
