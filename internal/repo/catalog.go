package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/models"
)

type DeviceFilter struct {
	BrandID uint
	TypeID  uint
}

// CreateDevice checks the brand and type and writes the device with its info rows.
func (r *GormRepo) CreateDevice(ctx context.Context, d *models.Device) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Brand{}).Where("id = ?", d.BrandID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrBrandNotFound
		}
		if err := tx.Model(&models.Type{}).Where("id = ?", d.TypeID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrTypeNotFound
		}
		if err := ensureUniqueName(tx, &models.Device{}, d.Name); err != nil {
			return err
		}
		return tx.Create(d).Error
	})
}

func (r *GormRepo) GetDevice(ctx context.Context, id uint) (*models.Device, error) {
	var device models.Device
	if err := r.DB.WithContext(ctx).
		Preload("Info", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&device, id).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *GormRepo) DeviceExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Device{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) ListDevices(ctx context.Context, f DeviceFilter, offset, limit int) (int64, []models.Device, error) {
	q := r.DB.WithContext(ctx).Model(&models.Device{})
	if f.BrandID != 0 {
		q = q.Where("brand_id = ?", f.BrandID)
	}
	if f.TypeID != 0 {
		q = q.Where("type_id = ?", f.TypeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := []models.Device{}
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateBrand(ctx context.Context, b *models.Brand) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName(tx, &models.Brand{}, b.Name); err != nil {
			return err
		}
		return tx.Create(b).Error
	})
}

func (r *GormRepo) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

func (r *GormRepo) DeleteBrand(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteUnreferenced(tx, &models.Brand{}, "brand_id", id)
	})
}

func (r *GormRepo) CreateType(ctx context.Context, t *models.Type) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName(tx, &models.Type{}, t.Name); err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

func (r *GormRepo) ListTypes(ctx context.Context) ([]models.Type, error) {
	var types []models.Type
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *GormRepo) DeleteType(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteUnreferenced(tx, &models.Type{}, "type_id", id)
	})
}

func deleteUnreferenced(tx *gorm.DB, model any, column string, id uint) error {
	var n int64
	if err := tx.Model(&models.Device{}).Where(column+" = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}

	res := tx.Delete(model, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return ErrInUse
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ensureUniqueName reports gorm.ErrDuplicatedKey the same way TranslateError does for the unique index.
func ensureUniqueName(tx *gorm.DB, model any, name string) error {
	var n int64
	if err := tx.Model(model).Where("name = ?", name).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return gorm.ErrDuplicatedKey
	}
	return nil
}
