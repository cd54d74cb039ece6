package memory

import (
	"context"
	"slices"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

type mappingRepo struct{ db *DB }

func (r *mappingRepo) Create(ctx context.Context, app repository.AppIdentifier, m repository.UserIDMapping) error {
	return r.db.do(ctx, func(s *state) error {
		if _, ok := s.users[appUser{app, m.InternalUserID}]; !ok {
			return repository.ErrNotFound
		}
		for _, row := range s.mappings {
			if row.app != app {
				continue
			}
			if row.m.InternalUserID == m.InternalUserID || row.m.ExternalUserID == m.ExternalUserID {
				return repository.ErrConflict
			}
		}
		s.mappings = append(s.mappings, mappingRow{app: app, m: m})
		return nil
	})
}

func (r *mappingRepo) Get(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (*repository.UserIDMapping, error) {
	var found *repository.UserIDMapping
	err := r.db.do(ctx, func(s *state) error {
		if i := findMapping(s.mappings, app, userID, idType); i >= 0 {
			m := s.mappings[i].m
			found = &m
			return nil
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *mappingRepo) Delete(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (bool, error) {
	var deleted bool
	err := r.db.do(ctx, func(s *state) error {
		if i := findMapping(s.mappings, app, userID, idType); i >= 0 {
			s.mappings = slices.Delete(s.mappings, i, i+1)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// findMapping con UserIDTypeAny busca primero como id interno.
func findMapping(rows []mappingRow, app repository.AppIdentifier, userID string, idType repository.UserIDType) int {
	match := func(external bool) int {
		return slices.IndexFunc(rows, func(row mappingRow) bool {
			if row.app != app {
				return false
			}
			if external {
				return row.m.ExternalUserID == userID
			}
			return row.m.InternalUserID == userID
		})
	}
	switch idType {
	case repository.UserIDTypeInternal:
		return match(false)
	case repository.UserIDTypeExternal:
		return match(true)
	default:
		if i := match(false); i >= 0 {
			return i
		}
		return match(true)
	}
}
