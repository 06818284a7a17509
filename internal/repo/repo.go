package repo

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/device_store/internal/models"
)

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrBrandNotFound    = errors.New("brand not found")
	ErrTypeNotFound     = errors.New("type not found")
	ErrInUse            = errors.New("still referenced by devices")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(models.All()...)
}

// forUpdate adds a row lock where the dialect has one; sqlite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
