package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

type totpRepo struct{ db *DB }

func (r *totpRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.RunInTx(ctx, fn)
}

func (r *totpRepo) GetDevices(ctx context.Context, app repository.AppIdentifier, userID string) ([]repository.TOTPDevice, error) {
	var out []repository.TOTPDevice
	err := r.db.do(ctx, func(s *state) error {
		out = append(out, s.devices[appUser{app, userID}]...)
		return nil
	})
	return out, err
}

func (r *totpRepo) GetDeviceByName(ctx context.Context, app repository.AppIdentifier, userID, name string) (*repository.TOTPDevice, error) {
	var found *repository.TOTPDevice
	err := r.db.do(ctx, func(s *state) error {
		devs := s.devices[appUser{app, userID}]
		i := deviceIndex(devs, name)
		if i < 0 {
			return repository.ErrNotFound
		}
		d := devs[i]
		found = &d
		return nil
	})
	return found, err
}

func (r *totpRepo) CreateDevice(ctx context.Context, app repository.AppIdentifier, device repository.TOTPDevice) error {
	return r.db.do(ctx, func(s *state) error {
		k := appUser{app, device.UserID}
		if deviceIndex(s.devices[k], device.Name) >= 0 {
			return repository.ErrConflict
		}
		s.totpUsers[k] = true
		s.devices[k] = append(s.devices[k], device)
		return nil
	})
}

func (r *totpRepo) DeleteDevice(ctx context.Context, app repository.AppIdentifier, userID, name string) (int, error) {
	var n int
	err := r.db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		devs := s.devices[k]
		if i := deviceIndex(devs, name); i >= 0 {
			s.devices[k] = slices.Delete(devs, i, i+1)
			n = 1
		}
		return nil
	})
	return n, err
}

func (r *totpRepo) MarkDeviceAsVerified(ctx context.Context, app repository.AppIdentifier, userID, name string) error {
	return r.db.do(ctx, func(s *state) error {
		devs := s.devices[appUser{app, userID}]
		i := deviceIndex(devs, name)
		if i < 0 {
			return repository.ErrNotFound
		}
		devs[i].Verified = true
		return nil
	})
}

func (r *totpRepo) UpdateDeviceName(ctx context.Context, app repository.AppIdentifier, userID, oldName, newName string) error {
	return r.db.do(ctx, func(s *state) error {
		devs := s.devices[appUser{app, userID}]
		i := deviceIndex(devs, oldName)
		if i < 0 {
			return repository.ErrNotFound
		}
		if oldName != newName && deviceIndex(devs, newName) >= 0 {
			return repository.ErrConflict
		}
		devs[i].Name = newName
		return nil
	})
}

func (r *totpRepo) RemoveUser(ctx context.Context, app repository.AppIdentifier, userID string) (bool, error) {
	var existed bool
	err := r.db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		existed = s.totpUsers[k]
		delete(s.totpUsers, k)
		delete(s.devices, k)
		deleteAppUser(s.usedCodes, app, userID)
		return nil
	})
	return existed, err
}

func (r *totpRepo) GetAllUsedCodesDescOrder(ctx context.Context, tenant repository.TenantIdentifier, userID string) ([]repository.TOTPUsedCode, error) {
	var out []repository.TOTPUsedCode
	err := r.db.do(ctx, func(s *state) error {
		out = append(out, s.usedCodes[tenantUser{tenant, userID}]...)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, err
}

func (r *totpRepo) InsertUsedCode(ctx context.Context, tenant repository.TenantIdentifier, code repository.TOTPUsedCode) error {
	return r.db.do(ctx, func(s *state) error {
		if !s.totpUsers[appUser{tenant.AppIdentifier(), code.UserID}] {
			return repository.ErrNotFound
		}
		k := tenantUser{tenant, code.UserID}
		for _, c := range s.usedCodes[k] {
			if c.CreatedAt == code.CreatedAt {
				return repository.ErrConflict
			}
			if code.IsValid && c.IsValid && c.Code == code.Code && c.ExpiresAt > code.CreatedAt {
				return repository.ErrConflict
			}
		}
		s.usedCodes[k] = append(s.usedCodes[k], code)
		return nil
	})
}

func (r *totpRepo) RemoveExpiredCodes(ctx context.Context, beforeMs int64) (int64, error) {
	var n int64
	err := r.db.do(ctx, func(s *state) error {
		for k, codes := range s.usedCodes {
			kept := slices.DeleteFunc(codes, func(c repository.TOTPUsedCode) bool { return c.ExpiresAt < beforeMs })
			n += int64(len(codes) - len(kept))
			s.usedCodes[k] = kept
		}
		return nil
	})
	return n, err
}

func deviceIndex(devs []repository.TOTPDevice, name string) int {
	return slices.IndexFunc(devs, func(d repository.TOTPDevice) bool { return d.Name == name })
}
