package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Skotchmaster/device_store/internal/models"
)

// OptionalInt accepts a JSON number or a numeric string and remembers whether it was sent.
type OptionalInt struct {
	Value int64
	Set   bool
}

func (o *OptionalInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = OptionalInt{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*o = OptionalInt{}
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*o = OptionalInt{Value: v, Set: true}
	return nil
}

// ID returns the value as an identifier; absent or non-positive input yields 0.
func (o OptionalInt) ID() uint {
	if !o.Set || o.Value <= 0 {
		return 0
	}
	return uint(o.Value)
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type NameRequest struct {
	Name string `json:"name"`
}

type AddBasketItemRequest struct {
	DeviceID OptionalInt `json:"deviceId"`
}

type SetRatingRequest struct {
	DeviceID OptionalInt `json:"deviceId"`
	Rate     OptionalInt `json:"rate"`
}

type SetRatingResponse struct {
	Rating              *models.Rating `json:"rating"`
	AverageDeviceRating float64        `json:"averageDeviceRating"`
}

type DeviceSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
	Img   string `json:"img"`
}

type BasketItemView struct {
	ID        uint           `json:"id"`
	BasketID  uint           `json:"basketId"`
	DeviceID  uint           `json:"deviceId"`
	CreatedAt time.Time      `json:"createdAt"`
	Device    *DeviceSummary `json:"device"`
}

type BasketView struct {
	ID        uint             `json:"id"`
	UserID    uint             `json:"userId"`
	Items     []BasketItemView `json:"basket_devices"`
	CreatedAt time.Time        `json:"createdAt"`
}

type RatingUser struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

type RatingView struct {
	ID        uint        `json:"id"`
	Rate      int         `json:"rate"`
	CreatedAt time.Time   `json:"createdAt"`
	User      *RatingUser `json:"user"`
}

func NewBasketView(b *models.Basket) BasketView {
	items := make([]BasketItemView, 0, len(b.Items))
	for _, it := range b.Items {
		v := BasketItemView{ID: it.ID, BasketID: it.BasketID, DeviceID: it.DeviceID, CreatedAt: it.CreatedAt}
		if it.Device != nil {
			v.Device = &DeviceSummary{ID: it.Device.ID, Name: it.Device.Name, Price: it.Device.Price, Img: it.Device.Img}
		}
		items = append(items, v)
	}
	return BasketView{ID: b.ID, UserID: b.UserID, Items: items, CreatedAt: b.CreatedAt}
}

func NewRatingViews(ratings []models.Rating) []RatingView {
	out := make([]RatingView, 0, len(ratings))
	for _, r := range ratings {
		v := RatingView{ID: r.ID, Rate: r.Rate, CreatedAt: r.CreatedAt}
		if r.User != nil {
			v.User = &RatingUser{ID: r.User.ID, Email: r.User.Email}
		}
		out = append(out, v)
	}
	return out
}
