package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts only the exact role names.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	Email     string    `gorm:"uniqueIndex;not null"                     json:"email"`
	Password  string    `gorm:"not null"                                 json:"-"`
	Role      Role      `gorm:"type:varchar(16);not null;default:USER"   json:"role"`
	CreatedAt time.Time `                                                json:"createdAt"`
	UpdatedAt time.Time `                                                json:"updatedAt"`
}

type Basket struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"   json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null"       json:"userId"`
	Items     []BasketDevice `gorm:"foreignKey:BasketID"        json:"basket_devices"`
	CreatedAt time.Time      `                                  json:"createdAt"`
	UpdatedAt time.Time      `                                  json:"updatedAt"`
}

// BasketDevice is one basket entry. The same device may appear in several entries.
type BasketDevice struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	BasketID  uint      `gorm:"index;not null"             json:"basketId"`
	DeviceID  uint      `gorm:"index;not null"             json:"deviceId"`
	Device    *Device   `gorm:"foreignKey:DeviceID"        json:"device,omitempty"`
	CreatedAt time.Time `                                  json:"createdAt"`
	UpdatedAt time.Time `                                  json:"updatedAt"`
}

type Device struct {
	ID        uint         `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name      string       `gorm:"uniqueIndex;not null"       json:"name"`
	Price     int          `gorm:"not null"                   json:"price"`
	Rating    float64      `gorm:"not null;default:0"         json:"rating"`
	Img       string       `gorm:"not null"                   json:"img"`
	BrandID   uint         `gorm:"index;not null"             json:"brandId"`
	TypeID    uint         `gorm:"index;not null"             json:"typeId"`
	Info      []DeviceInfo `gorm:"foreignKey:DeviceID"        json:"info,omitempty"`
	CreatedAt time.Time    `                                  json:"createdAt"`
	UpdatedAt time.Time    `                                  json:"updatedAt"`
}

type DeviceInfo struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	DeviceID    uint      `gorm:"index;not null"             json:"deviceId"`
	Title       string    `gorm:"not null"                   json:"title"`
	Description string    `gorm:"not null"                   json:"description"`
	CreatedAt   time.Time `                                  json:"createdAt"`
	UpdatedAt   time.Time `                                  json:"updatedAt"`
}

type Brand struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name      string    `gorm:"uniqueIndex;not null"       json:"name"`
	CreatedAt time.Time `                                  json:"createdAt"`
	UpdatedAt time.Time `                                  json:"updatedAt"`
}

type Type struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name      string    `gorm:"uniqueIndex;not null"       json:"name"`
	CreatedAt time.Time `                                  json:"createdAt"`
	UpdatedAt time.Time `                                  json:"updatedAt"`
}

// Rating holds at most one row per (user, device) pair.
type Rating struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"                      json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_device"   json:"userId"`
	DeviceID  uint      `gorm:"not null;uniqueIndex:idx_rating_user_device;index" json:"deviceId"`
	Rate      int       `gorm:"not null"                                      json:"rate"`
	User      *User     `gorm:"foreignKey:UserID"                             json:"user,omitempty"`
	CreatedAt time.Time `                                                     json:"createdAt"`
	UpdatedAt time.Time `                                                     json:"updatedAt"`
}

// All lists every table for AutoMigrate, parents first.
func All() []any {
	return []any{
		&User{},
		&Brand{},
		&Type{},
		&Device{},
		&DeviceInfo{},
		&Basket{},
		&BasketDevice{},
		&Rating{},
	}
}
