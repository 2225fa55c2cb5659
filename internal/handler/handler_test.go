package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/healthybite/internal/domain/order"
	"github.com/xenking/healthybite/internal/domain/user"
	"github.com/xenking/healthybite/internal/orderapi"
)

// --- Mock implementations ---

type memUserRepo struct {
	mu    sync.Mutex
	users []user.User
	seq   int
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	m.seq++
	u.ID = "u" + strconv.Itoa(m.seq)
	m.users = append(m.users, *u)
	return nil
}

func (m *memUserRepo) find(match func(user.User) bool) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	return m.find(func(u user.User) bool { return u.ID == id })
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return m.find(func(u user.User) bool { return u.Email == email })
}

func (m *memUserRepo) List(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]user.User(nil), m.users...), nil
}

func (m *memUserRepo) Update(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return user.ErrNotFound
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users = append(m.users[:i], m.users[i+1:]...)
			break
		}
	}
	return nil
}

type memOrderRepo struct {
	orders []order.Order
	err    error
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order) error {
	if m.err != nil {
		return m.err
	}
	o.ID = "o" + strconv.Itoa(len(m.orders)+1)
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, m.err
}

// --- Helpers ---

type testServer struct {
	router http.Handler
	users  *memUserRepo
	orders *memOrderRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := &memUserRepo{}
	orders := &memOrderRepo{}

	h, err := NewHandler(user.NewService(users), order.NewService(orders, nil), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	r := chi.NewRouter()
	h.Register(r)
	return &testServer{router: r, users: users, orders: orders}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{"name":"Sara Ali","email":"sara@example.com","phone":"91234567","password":"secret1","gender":"female"}`

// --- Tests ---

func TestRegisterUser(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/registerUser", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderapi.UserResponse
	require.NoError(t, orderapi.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "User registered.", resp.Msg)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(http.MethodPost, "/registerUser", registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"msg":"Email already registered."}`, rec.Body.String())
}

func TestRegisterUser_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "missing fields", body: `{"name":"Sara"}`, wantMsg: "All fields are required."},
		{name: "bad phone", body: `{"name":"Sara","email":"s@example.com","phone":"12345678","password":"secret1","gender":"f"}`, wantMsg: "Phone number must start with 9 or 7 and be exactly 8 digits."},
		{name: "numeric phone accepted then short password", body: `{"name":"Sara","email":"s@example.com","phone":91234567,"password":"123","gender":"f"}`, wantMsg: "Password must be at least 6 characters."},
		{name: "invalid json", body: `{"name":`, wantMsg: "Invalid request body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestServer(t).do(http.MethodPost, "/registerUser", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"msg":"`+tt.wantMsg+`"}`, rec.Body.String())
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/registerUser", registerBody).Code)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "success", body: `{"remail":"sara@example.com","rpassword":"secret1"}`, wantStatus: http.StatusOK, wantMsg: "Login success."},
		{name: "missing", body: `{"remail":"sara@example.com"}`, wantStatus: http.StatusBadRequest, wantMsg: "Email and password required."},
		{name: "unknown", body: `{"remail":"x@example.com","rpassword":"secret1"}`, wantStatus: http.StatusNotFound, wantMsg: "User not found."},
		{name: "wrong password", body: `{"remail":"sara@example.com","rpassword":"secret2"}`, wantStatus: http.StatusUnauthorized, wantMsg: "Incorrect password."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/login", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp orderapi.UserResponse
			require.NoError(t, orderapi.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMsg, resp.Msg)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "Sara Ali", resp.User.Name)
				assert.NotContains(t, rec.Body.String(), "$2a$")
			}
		})
	}
}

func TestProfiles_UpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/registerUser", registerBody).Code)

	rec := s.do(http.MethodPost, "/updateProfile", `{"uid":"u1","name":"Sara A.","email":"sara@example.com","phone":"71234567","pic":"me.png","gender":"female"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated orderapi.UserResponse
	require.NoError(t, orderapi.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Profile updated.", updated.Msg)
	assert.Equal(t, "me.png", updated.User.Pic)

	rec = s.do(http.MethodPost, "/updateProfile", `{"uid":"u9","name":"X","email":"x@example.com","phone":"71234567","gender":"male"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/getProfiles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profiles orderapi.ProfilesResponse
	require.NoError(t, orderapi.Unmarshal(rec.Body.Bytes(), &profiles))
	require.Len(t, profiles.Users, 1)
	assert.Equal(t, "Sara A.", profiles.Users[0].Name)

	rec = s.do(http.MethodDelete, "/delUser/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"Deleted."}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/getProfiles", "")
	assert.JSONEq(t, `{"user":[]}`, rec.Body.String())
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/createOrder", `{
		"userId": "u1",
		"items": [{"id":"power-salad","name":"Power Salad Bowl","price":1.9,"qty":2,"image":"meal1.png"}],
		"totalAmount": 3.8
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"orderId":"o1","msg":"Order saved."}`, rec.Body.String())

	require.Len(t, s.orders.orders, 1)
	stored := s.orders.orders[0]
	assert.Equal(t, "power-salad", stored.Items[0].ProductID)
	assert.Equal(t, 2, stored.Items[0].Qty)
	assert.Equal(t, order.StatusCompleted, stored.Status)
}

func TestCreateOrder_Invalid(t *testing.T) {
	for _, body := range []string{
		`{"userId":"u1","items":[],"totalAmount":0}`,
		`{"items":[{"id":"power-salad","qty":1}]}`,
	} {
		rec := newTestServer(t).do(http.MethodPost, "/createOrder", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"msg":"User and items are required."}`, rec.Body.String())
	}
}

func TestCreateOrder_StorageError(t *testing.T) {
	s := newTestServer(t)
	s.orders.err = errors.New("no primary")

	rec := s.do(http.MethodPost, "/createOrder", `{"userId":"u1","items":[{"id":"a","qty":1}],"totalAmount":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"msg":"Server error."}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "no primary")
}

func TestCreateOrder_DuplicateSubmissionsBothStored(t *testing.T) {
	s := newTestServer(t)
	body := `{"userId":"u1","items":[{"id":"a","name":"A","price":1,"qty":1}],"totalAmount":1}`

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/createOrder", body).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/createOrder", body).Code)
	assert.Len(t, s.orders.orders, 2)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(t)
	for _, total := range []string{"1", "2"} {
		rec := s.do(http.MethodPost, "/createOrder", `{"userId":"u1","items":[{"id":"a","name":"A","price":1,"qty":1}],"totalAmount":`+total+`}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(http.MethodGet, "/orders/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderapi.OrdersResponse
	require.NoError(t, orderapi.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "o2", resp.Orders[0].ID)
	assert.Equal(t, "a", resp.Orders[0].Items[0].ProductID)

	rec = s.do(http.MethodGet, "/orders/nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())
}
