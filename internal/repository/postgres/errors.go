package postgres

import (
	"errors"

	"github.com/dom/account-api/internal/repository"
	"gorm.io/gorm"
)

// translate maps gorm errors onto repository sentinels. duplicate is returned
// for unique violations and may be nil when none is expected.
func translate(err error, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case duplicate != nil && errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicate
	}
	return err
}

func activeRoles(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL").Order("name")
}

func paginate(opts repository.ListOptions) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if opts.PerPage <= 0 {
			return db
		}
		return db.Offset(opts.Offset()).Limit(opts.PerPage)
	}
}
