package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/cache"
	"github.com/Skotchmaster/device_store/internal/models"
	"github.com/Skotchmaster/device_store/internal/mykafka"
	"github.com/Skotchmaster/device_store/internal/repo"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

const (
	MinRate = 1
	MaxRate = 5
)

type RatingService struct {
	Repo   *repo.GormRepo
	Cache  cache.DeviceCache
	Events mykafka.Publisher
}

type RatingResult struct {
	Rating  *models.Rating
	Average float64
}

func (s *RatingService) SetRating(ctx context.Context, userID, deviceID uint, rate int) (*RatingResult, error) {
	if deviceID == 0 {
		return nil, fmt.Errorf("deviceId is required: %w", ErrValidation)
	}
	if rate < MinRate || rate > MaxRate {
		return nil, fmt.Errorf("rate must be between %d and %d: %w", MinRate, MaxRate, ErrValidation)
	}

	rating, avg, err := s.Repo.UpsertRating(ctx, userID, deviceID, rate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("device %d: %w", deviceID, ErrNotFound)
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, fmt.Errorf("device or user: %w", ErrValidation)
		}
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, deviceID); err != nil {
			logging.FromContext(ctx).Warn("cache_invalidate_failed", "device_id", deviceID, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicRating, strconv.FormatUint(uint64(deviceID), 10), map[string]any{
		"type":     "rating_set",
		"userID":   userID,
		"deviceID": deviceID,
		"rate":     rate,
		"average":  avg,
	})
	return &RatingResult{Rating: rating, Average: avg}, nil
}

func (s *RatingService) DeviceRatings(ctx context.Context, deviceID uint) ([]models.Rating, error) {
	if deviceID == 0 {
		return nil, fmt.Errorf("deviceId is required: %w", ErrValidation)
	}
	return s.Repo.ListDeviceRatings(ctx, deviceID)
}
