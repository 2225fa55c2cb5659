package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/healthybite/internal/domain/cart"
	"github.com/xenking/healthybite/internal/domain/checkout"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func sampleSession() *Session {
	s := New()
	s.User = &checkout.Identity{ID: "u1", Name: "Sara", Email: "sara@example.com", Phone: "91234567"}
	s.Cart.AddItem(cart.AddRequest{ID: "avocado-toast", Name: "Avocado Toast", Price: decimal.RequireFromString("1.5"), Quantity: 2, Image: "meal2.png"})
	s.Cart.AddItem(cart.AddRequest{ID: "lemon-mint-large", Name: "Classic Lemon Mint Water", Price: decimal.RequireFromString("1.8"), Quantity: 1, Size: "large"})
	return s
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupRedisStore(t, time.Hour)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(time.Hour),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := sampleSession()
			require.NoError(t, store.Save(ctx, s))

			got, err := store.Load(ctx, s.ID)
			require.NoError(t, err)

			assert.Equal(t, s.ID, got.ID)
			assert.Equal(t, s.User, got.User)
			require.Equal(t, 2, got.Cart.Len())
			assert.Equal(t, 3, got.Cart.TotalQuantity)
			assert.True(t, decimal.RequireFromString("4.8").Equal(got.Cart.TotalAmount))

			item, ok := got.Cart.Get("lemon-mint-large")
			require.True(t, ok)
			assert.Equal(t, "large", item.Size)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "missing")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := sampleSession()
			require.NoError(t, store.Save(ctx, s))
			require.NoError(t, store.Delete(ctx, s.ID))

			_, err := store.Load(ctx, s.ID)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_LoadedSessionIsIndependent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := sampleSession()
			require.NoError(t, store.Save(ctx, s))

			got, err := store.Load(ctx, s.ID)
			require.NoError(t, err)
			got.Cart.Clear()

			again, err := store.Load(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, again.Cart.Len(), "unsaved changes are not visible")
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	assert.Equal(t, time.Minute, mr.TTL(key(s.ID)))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NormalizesStoredCart(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)

	// Quantities out of range and stale totals, as a hand-edited value might have.
	require.NoError(t, mr.Set(key("s1"), `{"id":"s1","cart":{"items":[
		{"id":"power-salad","name":"Power Salad Bowl","price":"1.9","qty":42},
		{"id":"ghost","name":"Ghost","price":"1","qty":0}
	],"totalQuantity":99,"totalAmount":"0"}}`))

	got, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Cart.Len())
	assert.Equal(t, cart.MaxQty, got.Cart.TotalQuantity)
	assert.True(t, decimal.RequireFromString("19").Equal(got.Cart.TotalAmount))
}

func TestRedisStore_InvalidJSON(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	require.NoError(t, mr.Set(key("bad"), "{not json"))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_MissingCart(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	require.NoError(t, mr.Set(key("s2"), `{"id":"s2"}`))

	got, err := store.Load(context.Background(), "s2")
	require.NoError(t, err)
	require.NotNil(t, got.Cart)
	assert.True(t, got.Cart.IsEmpty())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	now = now.Add(50 * time.Second)
	_, err := store.Load(ctx, s.ID)
	require.NoError(t, err, "load slides the expiry")

	now = now.Add(50 * time.Second)
	_, err = store.Load(ctx, s.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTakeReceipt(t *testing.T) {
	s := sampleSession()
	s.Receipt = &checkout.Receipt{OrderID: "o1"}

	r := s.TakeReceipt()
	require.NotNil(t, r)
	assert.Equal(t, "o1", r.OrderID)
	assert.Nil(t, s.TakeReceipt())
}

func TestLogout(t *testing.T) {
	s := sampleSession()
	s.Receipt = &checkout.Receipt{OrderID: "o1"}
	require.True(t, s.Authenticated())

	s.Logout()
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.Receipt)
	assert.True(t, s.Cart.IsEmpty())
}
