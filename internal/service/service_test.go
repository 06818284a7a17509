package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/device_store/internal/cache"
	"github.com/Skotchmaster/device_store/internal/models"
	"github.com/Skotchmaster/device_store/internal/repo"
	pkgdb "github.com/Skotchmaster/device_store/pkg/db"
	"github.com/Skotchmaster/device_store/pkg/tokens"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	m, _ := event.(map[string]any)
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Event["type"].(string))
	}
	return out
}

type cachedDevice struct {
	device  *models.Device
	version int64
}

func (f *fakePublisher) quantities() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.events {
		if q, ok := e.Event["quantity"]; ok {
			out = append(out, q)
		}
	}
	return out
}

type fakeCache struct {
	mu          sync.Mutex
	data        map[uint]cachedDevice
	gen         map[uint]int64
	gets        int
	hits        int
	invalidated []uint
	beforeSet   func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[uint]cachedDevice{}, gen: map[uint]int64{}}
}

func (f *fakeCache) Get(_ context.Context, id uint) (cache.Lookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	e, ok := f.data[id]
	if ok && e.version == f.gen[id] {
		f.hits++
		return cache.Lookup{Device: e.device, Version: e.version}, nil
	}
	return cache.Lookup{Version: f.gen[id]}, nil
}

func (f *fakeCache) Set(_ context.Context, d *models.Device, version int64) error {
	if f.beforeSet != nil {
		f.beforeSet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[d.ID] = cachedDevice{device: d, version: version}
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, ids ...uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.gen[id]++
		delete(f.data, id)
	}
	f.invalidated = append(f.invalidated, ids...)
	return nil
}

type fakeImages struct {
	mu      sync.Mutex
	saved   map[string]string
	deleted []string
	saveErr error
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: map[string]string{}}
}

func (f *fakeImages) Save(_ context.Context, name string, r io.Reader, _ int64) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[name] = string(b)
	return nil
}

func (f *fakeImages) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, name)
	f.deleted = append(f.deleted, name)
	return nil
}

type testEnv struct {
	Repo    *repo.GormRepo
	Tokens  *tokens.Manager
	Events  *fakePublisher
	Cache   *fakeCache
	Images  *fakeImages
	Users   *UserService
	Catalog *CatalogService
	Basket  *BasketService
	Ratings *RatingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), pkgdb.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := &repo.GormRepo{DB: db}
	require.NoError(t, r.Migrate())

	tm, err := tokens.NewManager("test-secret")
	require.NoError(t, err)

	env := &testEnv{
		Repo:   r,
		Tokens: tm,
		Events: &fakePublisher{},
		Cache:  newFakeCache(),
		Images: newFakeImages(),
	}
	env.Users = &UserService{Repo: r, Tokens: tm, Cache: env.Cache, Events: env.Events}
	env.Catalog = &CatalogService{Repo: r, Images: env.Images, Cache: env.Cache, Events: env.Events}
	env.Basket = &BasketService{Repo: r, Events: env.Events}
	env.Ratings = &RatingService{Repo: r, Cache: env.Cache, Events: env.Events}
	return env
}

func (e *testEnv) register(t *testing.T, email string) *tokens.Claims {
	t.Helper()
	tok, err := e.Users.Register(context.Background(), email, "password", "")
	require.NoError(t, err)
	claims, err := e.Tokens.ClaimsFromToken(tok)
	require.NoError(t, err)
	return claims
}

func (e *testEnv) device(t *testing.T, name string) *models.Device {
	t.Helper()
	ctx := context.Background()
	b, err := e.Catalog.CreateBrand(ctx, "brand-"+name)
	require.NoError(t, err)
	ty, err := e.Catalog.CreateType(ctx, "type-"+name)
	require.NoError(t, err)
	d, err := e.Catalog.CreateDevice(ctx, CreateDeviceInput{
		Name: name, Price: 100, BrandID: b.ID, TypeID: ty.ID, Image: strings.NewReader("jpeg"),
	})
	require.NoError(t, err)
	return d
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tok, err := env.Users.Register(ctx, "a@b.c", "secret", "")
	require.NoError(t, err)
	claims, err := env.Tokens.ClaimsFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, string(models.RoleUser), claims.Role)

	_, err = env.Repo.GetBasketByUser(ctx, claims.ID)
	require.NoError(t, err)

	tok, err = env.Users.Register(ctx, "admin@b.c", "secret", "ADMIN")
	require.NoError(t, err)
	claims, err = env.Tokens.ClaimsFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role)

	_, err = env.Users.Register(ctx, "a@b.c", "other", "")
	assert.ErrorIs(t, err, ErrConflict)

	var n int64
	require.NoError(t, env.Repo.DB.Model(&models.User{}).Where("email = ?", "a@b.c").Count(&n).Error)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, []string{"user_registered", "user_registered"}, env.Events.types())
}

func TestUserService_Register_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{name: "empty email", email: "", password: "secret"},
		{name: "blank email", email: "   ", password: "secret"},
		{name: "empty password", email: "a@b.c", password: ""},
		{name: "unknown role", email: "a@b.c", password: "secret", role: "ROOT"},
		{name: "lowercase role", email: "a@b.c", password: "secret", role: "admin"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok, err := env.Users.Register(context.Background(), tt.email, tt.password, tt.role)
			assert.Empty(t, tok)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUserService_Login(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@b.c")

	tok, err := env.Users.Login(ctx, "a@b.c", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, errUnknown := env.Users.Login(ctx, "nobody@b.c", "password")
	_, errWrong := env.Users.Login(ctx, "a@b.c", "wrong")
	require.ErrorIs(t, errUnknown, ErrUnauthorized)
	require.ErrorIs(t, errWrong, ErrUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	_, err = env.Users.Login(ctx, "", "password")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_Check(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	claims := env.register(t, "a@b.c")

	tok, err := env.Users.Check(context.Background(), claims)
	require.NoError(t, err)
	again, err := env.Tokens.ClaimsFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, again.ID)
	assert.Equal(t, claims.Role, again.Role)

	_, err = env.Users.Check(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.Users.Delete(context.Background(), claims.ID))
	_, err = env.Users.Check(context.Background(), claims)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserService_Delete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	d := env.device(t, "phone")
	u := env.register(t, "a@b.c")

	_, err := env.Ratings.SetRating(ctx, u.ID, d.ID, 5)
	require.NoError(t, err)

	require.NoError(t, env.Users.Delete(ctx, u.ID))
	assert.Contains(t, env.Cache.invalidated, d.ID)

	stored, err := env.Repo.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Rating)

	assert.ErrorIs(t, env.Users.Delete(ctx, u.ID), ErrNotFound)
	assert.ErrorIs(t, env.Users.Delete(ctx, 0), ErrValidation)
}

func TestCatalogService_CreateDevice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	b, err := env.Catalog.CreateBrand(ctx, "Apple")
	require.NoError(t, err)
	ty, err := env.Catalog.CreateType(ctx, "Phone")
	require.NoError(t, err)

	d, err := env.Catalog.CreateDevice(ctx, CreateDeviceInput{
		Name: "iPhone", Price: 999, BrandID: b.ID, TypeID: ty.ID,
		Info:  `[{"title":"RAM","description":"8GB"},{"title":"Color","description":"Black"}]`,
		Image: strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(d.Img, ".jpg"))
	assert.Equal(t, "jpeg-bytes", env.Images.saved[d.Img])

	got, err := env.Repo.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Info, 2)
	assert.Equal(t, "Color", got.Info[1].Title)
	assert.Contains(t, env.Events.types(), "device_created")

	t.Run("malformed info is dropped", func(t *testing.T) {
		d, err := env.Catalog.CreateDevice(ctx, CreateDeviceInput{
			Name: "iPad", Price: 500, BrandID: b.ID, TypeID: ty.ID,
			Info: `{not json`, Image: strings.NewReader("x"),
		})
		require.NoError(t, err)
		got, err := env.Repo.GetDevice(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Info)
	})

	t.Run("unknown brand removes stored image", func(t *testing.T) {
		_, err := env.Catalog.CreateDevice(ctx, CreateDeviceInput{
			Name: "Ghost", Price: 1, BrandID: 999, TypeID: ty.ID, Image: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, ErrValidation)
		require.NotEmpty(t, env.Images.deleted)
		_, still := env.Images.saved[env.Images.deleted[len(env.Images.deleted)-1]]
		assert.False(t, still)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := env.Catalog.CreateDevice(ctx, CreateDeviceInput{
			Name: "iPhone", Price: 1, BrandID: b.ID, TypeID: ty.ID, Image: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("image store failure", func(t *testing.T) {
		env.Images.saveErr = errors.New("disk full")
		defer func() { env.Images.saveErr = nil }()
		_, err := env.Catalog.CreateDevice(ctx, CreateDeviceInput{
			Name: "Fails", Price: 1, BrandID: b.ID, TypeID: ty.ID, Image: strings.NewReader("x"),
		})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrValidation)
	})
}

func TestCatalogService_CreateDevice_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	img := func() io.Reader { return strings.NewReader("x") }

	tests := []struct {
		name string
		in   CreateDeviceInput
	}{
		{name: "no name", in: CreateDeviceInput{Price: 1, BrandID: 1, TypeID: 1, Image: img()}},
		{name: "no price", in: CreateDeviceInput{Name: "x", BrandID: 1, TypeID: 1, Image: img()}},
		{name: "no brand", in: CreateDeviceInput{Name: "x", Price: 1, TypeID: 1, Image: img()}},
		{name: "no type", in: CreateDeviceInput{Name: "x", Price: 1, BrandID: 1, Image: img()}},
		{name: "no image", in: CreateDeviceInput{Name: "x", Price: 1, BrandID: 1, TypeID: 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := env.Catalog.CreateDevice(context.Background(), tt.in)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCatalogService_GetDevice_ReadThrough(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	d := env.device(t, "camera")

	first, err := env.Catalog.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "camera", first.Name)
	assert.Equal(t, 0, env.Cache.hits)

	second, err := env.Catalog.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, env.Cache.hits)

	_, err = env.Catalog.GetDevice(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_GetDevice_FillRacingRatingIsDiscarded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	d := env.device(t, "tablet")
	u := env.register(t, "rater@x.y")

	// the rating commits between the database read and the cache fill
	env.Cache.beforeSet = func() {
		env.Cache.beforeSet = nil
		_, err := env.Ratings.SetRating(ctx, u.ID, d.ID, 5)
		require.NoError(t, err)
	}

	stale, err := env.Catalog.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Zero(t, stale.Rating)

	fresh, err := env.Catalog.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, fresh.Rating)
	assert.Equal(t, 0, env.Cache.hits)

	cached, err := env.Catalog.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cached.Rating)
	assert.Equal(t, 1, env.Cache.hits)
}

func TestCatalogService_ListDevices(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	base := env.device(t, "d0")
	for _, name := range []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9", "d10"} {
		_, err := env.Catalog.CreateDevice(ctx, CreateDeviceInput{
			Name: name, Price: 1, BrandID: base.BrandID, TypeID: base.TypeID, Image: strings.NewReader("x"),
		})
		require.NoError(t, err)
	}

	page, err := env.Catalog.ListDevices(ctx, 0, 0, 0, -1)
	require.NoError(t, err)
	assert.EqualValues(t, 11, page.Count)
	assert.Len(t, page.Rows, 9)

	page, err = env.Catalog.ListDevices(ctx, base.BrandID, 0, 2, 9)
	require.NoError(t, err)
	assert.EqualValues(t, 11, page.Count)
	assert.Len(t, page.Rows, 2)

	page, err = env.Catalog.ListDevices(ctx, base.BrandID+100, 0, 1, 9)
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.Empty(t, page.Rows)
}

func TestCatalogService_BrandsAndTypes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Catalog.CreateBrand(ctx, " ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.Catalog.CreateType(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)

	b, err := env.Catalog.CreateBrand(ctx, "Samsung")
	require.NoError(t, err)
	_, err = env.Catalog.CreateBrand(ctx, "Samsung")
	assert.ErrorIs(t, err, ErrConflict)

	ty, err := env.Catalog.CreateType(ctx, "TV")
	require.NoError(t, err)
	_, err = env.Catalog.CreateType(ctx, "TV")
	assert.ErrorIs(t, err, ErrConflict)

	brands, err := env.Catalog.ListBrands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 1)
	types, err := env.Catalog.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 1)

	_, err = env.Catalog.CreateDevice(ctx, CreateDeviceInput{
		Name: "QLED", Price: 1, BrandID: b.ID, TypeID: ty.ID, Image: strings.NewReader("x"),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, env.Catalog.DeleteBrand(ctx, b.ID), ErrValidation)
	assert.ErrorIs(t, env.Catalog.DeleteType(ctx, ty.ID), ErrValidation)
	assert.ErrorIs(t, env.Catalog.DeleteBrand(ctx, 999), ErrNotFound)
	assert.ErrorIs(t, env.Catalog.DeleteType(ctx, 999), ErrNotFound)

	other, err := env.Catalog.CreateBrand(ctx, "LG")
	require.NoError(t, err)
	require.NoError(t, env.Catalog.DeleteBrand(ctx, other.ID))
}

func TestBasketService(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@b.c")
	d := env.device(t, "mouse")

	_, err := env.Basket.AddItem(ctx, u.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.Basket.AddItem(ctx, u.ID, 999)
	assert.ErrorIs(t, err, ErrValidation)

	for i := 0; i < 2; i++ {
		item, err := env.Basket.AddItem(ctx, u.ID, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, item.DeviceID)
	}

	b, err := env.Basket.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, b.Items, 2)

	require.NoError(t, env.Basket.RemoveItem(ctx, u.ID, d.ID))
	b, err = env.Basket.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, b.Items, 1)
	require.NotNil(t, b.Items[0].Device)
	assert.Equal(t, "mouse", b.Items[0].Device.Name)

	require.NoError(t, env.Basket.RemoveItem(ctx, u.ID, d.ID))
	assert.ErrorIs(t, env.Basket.RemoveItem(ctx, u.ID, d.ID), ErrNotFound)

	assert.Equal(t, []string{"user_registered", "device_created", "basket_item_added", "basket_item_added",
		"basket_item_removed", "basket_item_removed"}, env.Events.types())
	assert.Equal(t, []any{int64(1), int64(2), int64(1), int64(0)}, env.Events.quantities())
}

func TestBasketService_MissingBasket(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	d := env.device(t, "keyboard")

	orphan := models.User{Email: "orphan@b.c", Password: "x", Role: models.RoleUser}
	require.NoError(t, env.Repo.DB.Create(&orphan).Error)

	_, err := env.Basket.AddItem(ctx, orphan.ID, d.ID)
	assert.ErrorIs(t, err, ErrBasketMissing)
	_, err = env.Basket.Get(ctx, orphan.ID)
	assert.ErrorIs(t, err, ErrBasketMissing)
	assert.ErrorIs(t, env.Basket.RemoveItem(ctx, orphan.ID, d.ID), ErrBasketMissing)
}

func TestRatingService_SetRating(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	d := env.device(t, "watch")
	u1 := env.register(t, "1@b.c")
	u2 := env.register(t, "2@b.c")
	u3 := env.register(t, "3@b.c")

	for _, tc := range []struct {
		user uint
		rate int
	}{{u1.ID, 3}, {u2.ID, 4}, {u3.ID, 5}} {
		_, err := env.Ratings.SetRating(ctx, tc.user, d.ID, tc.rate)
		require.NoError(t, err)
	}

	res, err := env.Ratings.SetRating(ctx, u3.ID, d.ID, 5)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, res.Average, 1e-9)
	assert.Equal(t, 5, res.Rating.Rate)
	assert.Contains(t, env.Cache.invalidated, d.ID)

	ratings, err := env.Ratings.DeviceRatings(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, 3)

	_, err = env.Ratings.SetRating(ctx, u1.ID, 999, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRatingService_SetRating_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name     string
		deviceID uint
		rate     int
	}{
		{name: "missing device", deviceID: 0, rate: 3},
		{name: "zero rate", deviceID: 1, rate: 0},
		{name: "above range", deviceID: 1, rate: 6},
		{name: "negative", deviceID: 1, rate: -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := env.Ratings.SetRating(context.Background(), 1, tt.deviceID, tt.rate)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPublish_FailureIsSwallowed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.Events.err = errors.New("broker down")

	_, err := env.Users.Register(context.Background(), "a@b.c", "secret", "")
	assert.NoError(t, err)
}
