package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/device_store/internal/cache"
	"github.com/Skotchmaster/device_store/internal/models"
	"github.com/Skotchmaster/device_store/internal/mykafka"
	"github.com/Skotchmaster/device_store/internal/repo"
	"github.com/Skotchmaster/device_store/internal/storage"
	"github.com/Skotchmaster/device_store/internal/util"
	"github.com/Skotchmaster/device_store/pkg/logging"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Images storage.ImageStore
	Cache  cache.DeviceCache
	Events mykafka.Publisher
}

type CreateDeviceInput struct {
	Name      string
	Price     int
	BrandID   uint
	TypeID    uint
	Info      string
	Image     io.Reader
	ImageSize int64
}

type DeviceInfoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type DevicePage struct {
	Count int64           `json:"count"`
	Rows  []models.Device `json:"rows"`
}

// ParseDeviceInfo decodes the optional info field. Malformed input yields no rows.
func ParseDeviceInfo(raw string) ([]models.DeviceInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var in []DeviceInfoInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}
	out := make([]models.DeviceInfo, 0, len(in))
	for _, i := range in {
		out = append(out, models.DeviceInfo{Title: i.Title, Description: i.Description})
	}
	return out, nil
}

func (s *CatalogService) CreateDevice(ctx context.Context, in CreateDeviceInput) (*models.Device, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_device")

	if strings.TrimSpace(in.Name) == "" || in.Price <= 0 || in.BrandID == 0 || in.TypeID == 0 {
		return nil, fmt.Errorf("name, price, brandId and typeId are required: %w", ErrValidation)
	}
	if in.Image == nil {
		return nil, fmt.Errorf("img file is required: %w", ErrValidation)
	}

	info, err := ParseDeviceInfo(in.Info)
	if err != nil {
		l.Warn("device_info_dropped", "reason", "malformed info json", "error", err)
		info = nil
	}

	fileName := uuid.NewString() + ".jpg"
	if err := s.Images.Save(ctx, fileName, in.Image, in.ImageSize); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	device := models.Device{
		Name:    strings.TrimSpace(in.Name),
		Price:   in.Price,
		BrandID: in.BrandID,
		TypeID:  in.TypeID,
		Img:     fileName,
		Info:    info,
	}
	if err := s.Repo.CreateDevice(ctx, &device); err != nil {
		if rmErr := s.Images.Delete(context.WithoutCancel(ctx), fileName); rmErr != nil {
			l.Warn("orphan_image", "file", fileName, "error", rmErr)
		}
		switch {
		case errors.Is(err, repo.ErrBrandNotFound), errors.Is(err, repo.ErrTypeNotFound):
			return nil, fmt.Errorf("%v: %w", err, ErrValidation)
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, fmt.Errorf("device %q: %w", device.Name, ErrConflict)
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return nil, fmt.Errorf("brand or type: %w", ErrValidation)
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicDevice, strconv.FormatUint(uint64(device.ID), 10), map[string]any{
		"type":     "device_created",
		"deviceID": device.ID,
		"name":     device.Name,
		"price":    device.Price,
	})
	return &device, nil
}

func (s *CatalogService) ListDevices(ctx context.Context, brandID, typeID uint, page, limit int) (*DevicePage, error) {
	_, offset, limit := util.Calculate(page, limit)

	total, rows, err := s.Repo.ListDevices(ctx, repo.DeviceFilter{BrandID: brandID, TypeID: typeID}, offset, limit)
	if err != nil {
		return nil, err
	}
	return &DevicePage{Count: total, Rows: rows}, nil
}

// GetDevice reads through the device cache; cache failures fall back to the database.
func (s *CatalogService) GetDevice(ctx context.Context, id uint) (*models.Device, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.get_device")

	fill := false
	var version int64
	if s.Cache != nil {
		hit, err := s.Cache.Get(ctx, id)
		if err != nil {
			l.Warn("cache_get_failed", "device_id", id, "error", err)
		} else if hit.Device != nil {
			return hit.Device, nil
		} else {
			fill, version = true, hit.Version
		}
	}

	d, err := s.Repo.GetDevice(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("device %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	// version was read before the row; a concurrent Invalidate moves past it
	if fill {
		if err := s.Cache.Set(ctx, d, version); err != nil {
			l.Warn("cache_set_failed", "device_id", id, "error", err)
		}
	}
	return d, nil
}

func (s *CatalogService) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("brand name is required: %w", ErrValidation)
	}
	b := models.Brand{Name: name}
	if err := s.Repo.CreateBrand(ctx, &b); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("brand %q: %w", name, ErrConflict)
		}
		return nil, err
	}
	return &b, nil
}

func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	return s.Repo.ListBrands(ctx)
}

func (s *CatalogService) DeleteBrand(ctx context.Context, id uint) error {
	return mapDeleteErr("brand", id, s.Repo.DeleteBrand(ctx, id))
}

func (s *CatalogService) CreateType(ctx context.Context, name string) (*models.Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("type name is required: %w", ErrValidation)
	}
	t := models.Type{Name: name}
	if err := s.Repo.CreateType(ctx, &t); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("type %q: %w", name, ErrConflict)
		}
		return nil, err
	}
	return &t, nil
}

func (s *CatalogService) ListTypes(ctx context.Context) ([]models.Type, error) {
	return s.Repo.ListTypes(ctx)
}

func (s *CatalogService) DeleteType(ctx context.Context, id uint) error {
	return mapDeleteErr("type", id, s.Repo.DeleteType(ctx, id))
}

func mapDeleteErr(kind string, id uint, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	case errors.Is(err, repo.ErrInUse):
		return fmt.Errorf("%s %d is used by devices: %w", kind, id, ErrValidation)
	}
	return err
}
