package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/models"
)

// CreateUserWithBasket stores the user and its basket atomically.
func (r *GormRepo) CreateUserWithBasket(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrUserAlreadyExist
		}

		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserAlreadyExist
			}
			return err
		}
		return tx.Create(&models.Basket{UserID: u.ID}).Error
	})
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the user with its basket and ratings, recomputing the
// rating of every device the user had rated. It returns those device ids.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) ([]uint, error) {
	var rated []uint

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Rating{}).Where("user_id = ?", id).
			Distinct().Order("device_id").Pluck("device_id", &rated).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		for _, deviceID := range rated {
			if _, err := recomputeDeviceRating(tx, deviceID); err != nil {
				return err
			}
		}

		var basket models.Basket
		err := tx.Where("user_id = ?", id).First(&basket).Error
		switch {
		case err == nil:
			if err := tx.Where("basket_id = ?", basket.ID).Delete(&models.BasketDevice{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&basket).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return tx.Delete(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return rated, nil
}
