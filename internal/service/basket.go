package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/models"
	"github.com/Skotchmaster/device_store/internal/mykafka"
	"github.com/Skotchmaster/device_store/internal/repo"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

type BasketService struct {
	Repo   *repo.GormRepo
	Events mykafka.Publisher
}

func (s *BasketService) basket(ctx context.Context, userID uint) (*models.Basket, error) {
	b, err := s.Repo.GetBasketByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrBasketMissing)
		}
		return nil, err
	}
	return b, nil
}

// AddItem appends a new entry; adding the same device twice yields two entries.
func (s *BasketService) AddItem(ctx context.Context, userID, deviceID uint) (*models.BasketDevice, error) {
	if deviceID == 0 {
		return nil, fmt.Errorf("deviceId is required: %w", ErrValidation)
	}

	b, err := s.basket(ctx, userID)
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.DeviceExists(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("device %d does not exist: %w", deviceID, ErrValidation)
	}

	item := models.BasketDevice{BasketID: b.ID, DeviceID: deviceID}
	if err := s.Repo.AddBasketItem(ctx, &item); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, fmt.Errorf("device %d does not exist: %w", deviceID, ErrValidation)
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicBasket, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":     "basket_item_added",
		"userID":   userID,
		"deviceID": deviceID,
		"quantity": s.quantity(ctx, b.ID, deviceID),
	})
	return &item, nil
}

func (s *BasketService) Get(ctx context.Context, userID uint) (*models.Basket, error) {
	b, err := s.Repo.GetBasketWithItems(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrBasketMissing)
		}
		return nil, err
	}
	return b, nil
}

// RemoveItem deletes exactly one entry for the device.
func (s *BasketService) RemoveItem(ctx context.Context, userID, deviceID uint) error {
	if deviceID == 0 {
		return fmt.Errorf("deviceId is required: %w", ErrValidation)
	}

	b, err := s.basket(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Repo.RemoveOneBasketItem(ctx, b.ID, deviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("device %d not in basket: %w", deviceID, ErrNotFound)
		}
		return err
	}

	publish(ctx, s.Events, mykafka.TopicBasket, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":     "basket_item_removed",
		"userID":   userID,
		"deviceID": deviceID,
		"quantity": s.quantity(ctx, b.ID, deviceID),
	})
	return nil
}

// quantity is the number of entries for the device; -1 when it cannot be read.
func (s *BasketService) quantity(ctx context.Context, basketID, deviceID uint) int64 {
	n, err := s.Repo.CountBasketItems(ctx, basketID, deviceID)
	if err != nil {
		logging.FromContext(ctx).Warn("basket_count_failed", "basket_id", basketID, "device_id", deviceID, "error", err)
		return -1
	}
	return n
}
