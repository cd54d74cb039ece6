package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ConnectionPool administra una conexión por storage configurado.
// Thread-safe, usa singleflight para evitar conexiones duplicadas.
// No corre goroutines propias: las conexiones se abren bajo demanda y se
// cierran con Close/CloseAll.
type ConnectionPool struct {
	connections sync.Map // storage name → *poolEntry
	sf          singleflight.Group
	factory     ConnectionFactory
	cfg         PoolConfig
}

// ConnectionFactory crea la conexión para un storage.
type ConnectionFactory func(ctx context.Context, storage string, cfg AdapterConfig) (AdapterConnection, error)

// PoolConfig callbacks opcionales del pool.
type PoolConfig struct {
	OnConnect    func(storage string, conn AdapterConnection)
	OnDisconnect func(storage string)
}

type poolEntry struct {
	conn       AdapterConnection
	createdAt  time.Time
	mu         sync.Mutex
	lastUsedAt time.Time
}

func (e *poolEntry) touch() {
	e.mu.Lock()
	e.lastUsedAt = time.Now()
	e.mu.Unlock()
}

// NewConnectionPool crea un pool. Con factory nil se usa OpenAdapter.
func NewConnectionPool(factory ConnectionFactory, cfg PoolConfig) *ConnectionPool {
	if factory == nil {
		factory = func(ctx context.Context, _ string, ac AdapterConfig) (AdapterConnection, error) {
			return OpenAdapter(ctx, ac)
		}
	}
	return &ConnectionPool{factory: factory, cfg: cfg}
}

// Get obtiene la conexión del storage o la crea.
func (p *ConnectionPool) Get(ctx context.Context, storage string, adapterCfg AdapterConfig) (AdapterConnection, error) {
	if val, ok := p.connections.Load(storage); ok {
		entry := val.(*poolEntry)
		entry.touch()
		return entry.conn, nil
	}

	result, err, _ := p.sf.Do(storage, func() (interface{}, error) {
		if val, ok := p.connections.Load(storage); ok {
			return val.(*poolEntry).conn, nil
		}

		conn, err := p.factory(ctx, storage, adapterCfg)
		if err != nil {
			return nil, fmt.Errorf("storage %q: %w", storage, err)
		}

		now := time.Now()
		p.connections.Store(storage, &poolEntry{conn: conn, createdAt: now, lastUsedAt: now})
		if p.cfg.OnConnect != nil {
			p.cfg.OnConnect(storage, conn)
		}
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(AdapterConnection), nil
}

// Has verifica si el storage ya tiene conexión abierta.
func (p *ConnectionPool) Has(storage string) bool {
	_, ok := p.connections.Load(storage)
	return ok
}

// Close cierra la conexión de un storage.
func (p *ConnectionPool) Close(storage string) error {
	val, ok := p.connections.LoadAndDelete(storage)
	if !ok {
		return nil
	}
	if p.cfg.OnDisconnect != nil {
		p.cfg.OnDisconnect(storage)
	}
	return val.(*poolEntry).conn.Close()
}

// CloseAll cierra todas las conexiones.
func (p *ConnectionPool) CloseAll() error {
	var errs []error
	p.connections.Range(func(key, _ interface{}) bool {
		if err := p.Close(key.(string)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return true
	})
	return errors.Join(errs...)
}

// Stats retorna estadísticas del pool.
func (p *ConnectionPool) Stats() PoolStats {
	stats := PoolStats{Connections: make(map[string]ConnectionStats)}

	p.connections.Range(func(key, value interface{}) bool {
		entry := value.(*poolEntry)
		entry.mu.Lock()
		stats.Connections[key.(string)] = ConnectionStats{
			Driver:     entry.conn.Name(),
			CreatedAt:  entry.createdAt,
			LastUsedAt: entry.lastUsedAt,
		}
		entry.mu.Unlock()
		stats.TotalActive++
		return true
	})
	return stats
}

// PoolStats estadísticas del pool.
type PoolStats struct {
	TotalActive int
	Connections map[string]ConnectionStats
}

// ConnectionStats estadísticas de una conexión.
type ConnectionStats struct {
	Driver     string
	CreatedAt  time.Time
	LastUsedAt time.Time
}
