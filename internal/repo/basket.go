package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/models"
)

func (r *GormRepo) GetBasketByUser(ctx context.Context, userID uint) (*models.Basket, error) {
	var basket models.Basket
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&basket).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func (r *GormRepo) GetBasketWithItems(ctx context.Context, userID uint) (*models.Basket, error) {
	var basket models.Basket
	if err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Device").
		Where("user_id = ?", userID).
		First(&basket).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func (r *GormRepo) AddBasketItem(ctx context.Context, item *models.BasketDevice) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

// RemoveOneBasketItem deletes the newest entry for the device, leaving the others.
func (r *GormRepo) RemoveOneBasketItem(ctx context.Context, basketID, deviceID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.BasketDevice
		if err := forUpdate(tx).
			Where("basket_id = ? AND device_id = ?", basketID, deviceID).
			Order("id DESC").
			First(&item).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
}

func (r *GormRepo) CountBasketItems(ctx context.Context, basketID, deviceID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.BasketDevice{}).
		Where("basket_id = ? AND device_id = ?", basketID, deviceID).
		Count(&n).Error
	return n, err
}
