package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type stubMemberService struct {
	signup      func(service.SignupInput) (*domain.Member, error)
	login       func(email, password string) (*service.LoginResult, error)
	currentUser func(*domain.Claims) (*service.Principal, error)
	list        func() ([]*domain.Member, error)
	get         func(id int64) (*domain.Member, error)
	update      func(id int64, update domain.MemberUpdate) (*domain.Member, error)
	del         func(id int64) (*domain.Member, error)
}

func (s *stubMemberService) Signup(_ context.Context, in service.SignupInput) (*domain.Member, error) {
	return s.signup(in)
}

func (s *stubMemberService) Login(_ context.Context, email, password string) (*service.LoginResult, error) {
	return s.login(email, password)
}

func (s *stubMemberService) Refresh(context.Context, string) (string, error) {
	return "new-access-token", nil
}

func (s *stubMemberService) Logout(context.Context, string) error { return nil }

func (s *stubMemberService) CurrentUser(_ context.Context, claims *domain.Claims) (*service.Principal, error) {
	return s.currentUser(claims)
}

func (s *stubMemberService) ListMembers(context.Context) ([]*domain.Member, error) { return s.list() }

func (s *stubMemberService) GetMember(_ context.Context, id int64) (*domain.Member, error) {
	return s.get(id)
}

func (s *stubMemberService) UpdateMember(_ context.Context, id int64, update domain.MemberUpdate) (*domain.Member, error) {
	return s.update(id, update)
}

func (s *stubMemberService) DeleteMember(_ context.Context, id int64) (*domain.Member, error) {
	return s.del(id)
}

func (s *stubMemberService) EnsureAdministrator(context.Context, string, string, string) (*domain.Administrator, error) {
	return &domain.Administrator{ID: 1}, nil
}

type stubItemService struct {
	created    []*domain.Item
	byCategory func(categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error)
	withCats   []*domain.ItemWithCategories
	uploaded   string
}

func (s *stubItemService) create(item *domain.Item) (*domain.Item, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrInvalidInput, err)
	}
	item.ID = int64(len(s.created) + 1)
	s.created = append(s.created, item)
	return item, nil
}

func (s *stubItemService) CreateBook(_ context.Context, name string, price int64, stock int, author string, isbn int64) (*domain.Item, error) {
	return s.create(domain.NewBook(name, price, stock, author, isbn))
}

func (s *stubItemService) CreateAlbum(_ context.Context, name string, price int64, stock int, artist, etc string) (*domain.Item, error) {
	return s.create(domain.NewAlbum(name, price, stock, artist, etc))
}

func (s *stubItemService) CreateMovie(_ context.Context, name string, price int64, stock int, director, actor string) (*domain.Item, error) {
	return s.create(domain.NewMovie(name, price, stock, director, actor))
}

func (s *stubItemService) GetItem(_ context.Context, id int64) (*domain.Item, error) {
	for _, item := range s.created {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, service.ErrNotFound
}

func (s *stubItemService) ListItems(context.Context) ([]*domain.Item, error) { return s.created, nil }

func (s *stubItemService) ListItemsWithCategories(context.Context) ([]*domain.ItemWithCategories, error) {
	return s.withCats, nil
}

func (s *stubItemService) UpdateItem(ctx context.Context, id int64, update service.ItemUpdate) (*domain.Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Price != nil {
		item.Price = *update.Price
	}
	return item, nil
}

func (s *stubItemService) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	return s.GetItem(ctx, id)
}

func (s *stubItemService) GetItemsByCategory(_ context.Context, categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error) {
	return s.byCategory(categoryID, itemType)
}

func (s *stubItemService) UploadImage(_ context.Context, filename string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.uploaded = filename + ":" + string(content)
	return service.StaticPrefix + "generated.png", nil
}

func (s *stubItemService) ExportItems(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("PK-workbook"))
	return err
}

type stubCategoryService struct {
	addChild func(parent, child string) (*domain.Category, error)
	connects []string
}

func (s *stubCategoryService) CreateCategory(_ context.Context, name, description string) (*domain.Category, error) {
	return &domain.Category{ID: 1, Name: name, Description: description}, nil
}

func (s *stubCategoryService) AddChild(_ context.Context, parent, child string) (*domain.Category, error) {
	return s.addChild(parent, child)
}

func (s *stubCategoryService) AddParent(_ context.Context, child, parent string) (*domain.Category, error) {
	return &domain.Category{ID: 2, Name: child}, nil
}

func (s *stubCategoryService) RemoveCategory(context.Context, string) error { return nil }

func (s *stubCategoryService) UpdateCategory(_ context.Context, name, newName, newDescription string) (*domain.Category, error) {
	return &domain.Category{ID: 1, Name: newName, Description: newDescription}, nil
}

func (s *stubCategoryService) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	return nil, service.ErrNotFound
}

func (s *stubCategoryService) GetAllCategories(context.Context) ([]*domain.CategoryNode, error) {
	return nil, nil
}

func (s *stubCategoryService) GetAllCategoriesFlat(context.Context) ([]*domain.Category, error) {
	return nil, nil
}

func (s *stubCategoryService) SearchCategories(_ context.Context, keyword string) ([]*domain.Category, error) {
	return []*domain.Category{{ID: 1, Name: keyword}}, nil
}

func (s *stubCategoryService) Connect(_ context.Context, itemID int64, name string) error {
	s.connects = append(s.connects, name)
	return nil
}

func (s *stubCategoryService) Disconnect(context.Context, int64, string) error { return nil }

func (s *stubCategoryService) GetCategoriesByItem(context.Context, int64) ([]*domain.Category, error) {
	return nil, nil
}

type stubOrderService struct {
	create func(service.CreateOrderInput) (*domain.Order, error)
	orders map[int64]*domain.Order
}

func (s *stubOrderService) CreateOrder(_ context.Context, in service.CreateOrderInput) (*domain.Order, error) {
	return s.create(in)
}

func (s *stubOrderService) GetOrdersByMemberID(_ context.Context, memberID int64) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range s.orders {
		if order.MemberID == memberID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *stubOrderService) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return order, nil
}

type testAPI struct {
	router     http.Handler
	members    *stubMemberService
	items      *stubItemService
	categories *stubCategoryService
	orders     *stubOrderService
}

func newTestAPI() *testAPI {
	api := &testAPI{
		members:    &stubMemberService{},
		items:      &stubItemService{},
		categories: &stubCategoryService{},
		orders:     &stubOrderService{orders: map[int64]*domain.Order{}},
	}

	logger := zap.NewNop()
	auth := middleware.AuthMiddleware(testSecret, logger)
	r := chi.NewRouter()
	NewMemberHandler(api.members, logger).RegisterRoutes(r, auth, nil)
	NewItemHandler(api.items, logger).RegisterRoutes(r, auth)
	NewCategoryHandler(api.categories, logger).RegisterRoutes(r, auth)
	NewOrderHandler(api.orders, logger).RegisterRoutes(r, auth)
	api.router = r
	return api
}

func bearer(t *testing.T, userID int64, role string) string {
	t.Helper()
	claims := &domain.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kim@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// do sends a JSON request; token may be empty
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
