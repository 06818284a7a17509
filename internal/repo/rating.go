package repo

import (
	"context"
	"database/sql"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/device_store/internal/models"
)

// UpsertRating stores the user's rate for the device and refreshes the device
// average in the same transaction. Writers for one device serialize on the device row.
func (r *GormRepo) UpsertRating(ctx context.Context, userID, deviceID uint, rate int) (*models.Rating, float64, error) {
	var (
		rating models.Rating
		avg    float64
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var device models.Device
		if err := forUpdate(tx).Select("id").First(&device, deviceID).Error; err != nil {
			return err
		}

		row := models.Rating{UserID: userID, DeviceID: deviceID, Rate: rate}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"rate":       rate,
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&rating).Error; err != nil {
			return err
		}

		var err error
		avg, err = recomputeDeviceRating(tx, deviceID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return &rating, avg, nil
}

func (r *GormRepo) ListDeviceRatings(ctx context.Context, deviceID uint) ([]models.Rating, error) {
	var ratings []models.Rating
	if err := r.DB.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "email") }).
		Where("device_id = ?", deviceID).
		Order("id ASC").
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

func recomputeDeviceRating(tx *gorm.DB, deviceID uint) (float64, error) {
	var res struct {
		Avg sql.NullFloat64
	}
	if err := tx.Model(&models.Rating{}).
		Select("AVG(rate) AS avg").
		Where("device_id = ?", deviceID).
		Scan(&res).Error; err != nil {
		return 0, err
	}

	avg := 0.0
	if res.Avg.Valid {
		avg = RoundRating(res.Avg.Float64)
	}

	if err := tx.Model(&models.Device{}).Where("id = ?", deviceID).Update("rating", avg).Error; err != nil {
		return 0, err
	}
	return avg, nil
}

// RoundRating keeps one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
