package service

import (
	"context"
	"sort"
	"strings"

	"shop-api/internal/domain"
	"shop-api/internal/repository"
)

// memStore is an in-memory stand-in for the database shared by the mock
// repositories. mockTransactor snapshots it so a failed transaction leaves
// it untouched.
type memStore struct {
	nextID     int64
	members    map[int64]*domain.Member
	admins     map[int64]*domain.Administrator
	tokens     map[string]*domain.RefreshToken
	categories map[int64]*domain.Category
	links      map[[2]int64]bool
	items      map[int64]*domain.Item
	orders     map[int64]*domain.Order
}

func newMemStore() *memStore {
	return &memStore{
		members:    make(map[int64]*domain.Member),
		admins:     make(map[int64]*domain.Administrator),
		tokens:     make(map[string]*domain.RefreshToken),
		categories: make(map[int64]*domain.Category),
		links:      make(map[[2]int64]bool),
		items:      make(map[int64]*domain.Item),
		orders:     make(map[int64]*domain.Order),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	c.nextID = s.nextID
	for k, v := range s.members {
		cp := *v
		c.members[k] = &cp
	}
	for k, v := range s.admins {
		cp := *v
		c.admins[k] = &cp
	}
	for k, v := range s.tokens {
		cp := *v
		c.tokens[k] = &cp
	}
	for k, v := range s.categories {
		c.categories[k] = copyCategory(v)
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	for k, v := range s.items {
		cp := *v
		c.items[k] = &cp
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

func copyCategory(c *domain.Category) *domain.Category {
	cp := *c
	if c.ParentID != nil {
		pid := *c.ParentID
		cp.ParentID = &pid
	}
	return &cp
}

type mockTransactor struct {
	store *memStore
}

func (m *mockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := m.store.clone()
	if err := fn(ctx); err != nil {
		*m.store = *snapshot
		return err
	}
	return nil
}

type mockMemberRepository struct{ store *memStore }

func (m *mockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	for _, existing := range m.store.members {
		if existing.Email == member.Email {
			return repository.ErrMemberAlreadyExists
		}
	}
	member.ID = m.store.id()
	cp := *member
	m.store.members[member.ID] = &cp
	return nil
}

func (m *mockMemberRepository) FindByID(ctx context.Context, id int64) (*domain.Member, error) {
	member, ok := m.store.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	cp := *member
	return &cp, nil
}

func (m *mockMemberRepository) FindByEmail(ctx context.Context, email string) (*domain.Member, error) {
	for _, member := range m.store.members {
		if member.Email == email {
			cp := *member
			return &cp, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (m *mockMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	out := []*domain.Member{}
	for _, member := range m.store.members {
		cp := *member
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockMemberRepository) Update(ctx context.Context, member *domain.Member) error {
	if _, ok := m.store.members[member.ID]; !ok {
		return repository.ErrMemberNotFound
	}
	cp := *member
	m.store.members[member.ID] = &cp
	return nil
}

func (m *mockMemberRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.store.members[id]; !ok {
		return repository.ErrMemberNotFound
	}
	delete(m.store.members, id)
	return nil
}

type mockAdministratorRepository struct{ store *memStore }

func (m *mockAdministratorRepository) Create(ctx context.Context, admin *domain.Administrator) error {
	for _, existing := range m.store.admins {
		if existing.Email == admin.Email {
			return repository.ErrAdministratorAlreadyExists
		}
	}
	admin.ID = m.store.id()
	cp := *admin
	m.store.admins[admin.ID] = &cp
	return nil
}

func (m *mockAdministratorRepository) FindByID(ctx context.Context, id int64) (*domain.Administrator, error) {
	admin, ok := m.store.admins[id]
	if !ok {
		return nil, repository.ErrAdministratorNotFound
	}
	cp := *admin
	return &cp, nil
}

func (m *mockAdministratorRepository) FindByEmail(ctx context.Context, email string) (*domain.Administrator, error) {
	for _, admin := range m.store.admins {
		if admin.Email == email {
			cp := *admin
			return &cp, nil
		}
	}
	return nil, repository.ErrAdministratorNotFound
}

type mockRefreshTokenRepository struct{ store *memStore }

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	cp := *token
	m.store.tokens[token.Token] = &cp
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, ok := m.store.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	cp := *refreshToken
	return &cp, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, ok := m.store.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForSubject(ctx context.Context, subjectType string, subjectID int64) error {
	for _, token := range m.store.tokens {
		if token.SubjectType == subjectType && token.SubjectID == subjectID {
			token.Revoked = true
		}
	}
	return nil
}

type mockCategoryRepository struct{ store *memStore }

func (m *mockCategoryRepository) nameTaken(name string, exceptID int64) bool {
	for _, c := range m.store.categories {
		if c.Name == name && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if m.nameTaken(category.Name, 0) {
		return repository.ErrCategoryAlreadyExists
	}
	category.ID = m.store.id()
	category.ParentID = nil
	m.store.categories[category.ID] = copyCategory(category)
	return nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, ok := m.store.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return copyCategory(c), nil
}

func (m *mockCategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	all, _ := m.List(ctx)
	for _, c := range all {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range m.store.categories {
		out = append(out, copyCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCategoryRepository) Search(ctx context.Context, keyword string) ([]*domain.Category, error) {
	all, _ := m.List(ctx)
	out := []*domain.Category{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(keyword)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	existing, ok := m.store.categories[category.ID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	if m.nameTaken(category.Name, category.ID) {
		return repository.ErrCategoryAlreadyExists
	}
	existing.Name = category.Name
	existing.Description = category.Description
	return nil
}

func (m *mockCategoryRepository) SetParent(ctx context.Context, childID, parentID int64) error {
	c, ok := m.store.categories[childID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	c.ParentID = &parentID
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.store.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.store.categories, id)
	for _, c := range m.store.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	for link := range m.store.links {
		if link[0] == id {
			delete(m.store.links, link)
		}
	}
	return nil
}

func (m *mockCategoryRepository) LockTree(ctx context.Context) error { return nil }

func (m *mockCategoryRepository) Connect(ctx context.Context, categoryID, itemID int64) error {
	m.store.links[[2]int64{categoryID, itemID}] = true
	return nil
}

func (m *mockCategoryRepository) Disconnect(ctx context.Context, categoryID, itemID int64) error {
	key := [2]int64{categoryID, itemID}
	if !m.store.links[key] {
		return repository.ErrCategoryItemNotFound
	}
	delete(m.store.links, key)
	return nil
}

func (m *mockCategoryRepository) ListByItem(ctx context.Context, itemID int64) ([]*domain.Category, error) {
	all, _ := m.List(ctx)
	out := []*domain.Category{}
	for _, c := range all {
		if m.store.links[[2]int64{c.ID, itemID}] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) SummariesByItems(ctx context.Context, itemIDs []int64) (map[int64][]domain.CategorySummary, error) {
	out := make(map[int64][]domain.CategorySummary)
	for _, itemID := range itemIDs {
		cats, _ := m.ListByItem(ctx, itemID)
		for _, c := range cats {
			out[itemID] = append(out[itemID], domain.CategorySummary{ID: c.ID, Name: c.Name})
		}
	}
	return out, nil
}

type mockItemRepository struct{ store *memStore }

func (m *mockItemRepository) Create(ctx context.Context, item *domain.Item) error {
	item.ID = m.store.id()
	cp := *item
	m.store.items[item.ID] = &cp
	return nil
}

func (m *mockItemRepository) FindByID(ctx context.Context, id int64) (*domain.Item, error) {
	item, ok := m.store.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *mockItemRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	return m.FindByID(ctx, id)
}

func (m *mockItemRepository) List(ctx context.Context) ([]*domain.Item, error) {
	out := []*domain.Item{}
	for _, item := range m.store.items {
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockItemRepository) ListByCategory(ctx context.Context, categoryID int64, itemType *domain.ItemType) ([]*domain.Item, error) {
	subtree := map[int64]bool{categoryID: true}
	for changed := true; changed; {
		changed = false
		for _, c := range m.store.categories {
			if c.ParentID != nil && subtree[*c.ParentID] && !subtree[c.ID] {
				subtree[c.ID] = true
				changed = true
			}
		}
	}

	all, _ := m.List(ctx)
	out := []*domain.Item{}
	for _, item := range all {
		if itemType != nil && item.Type != *itemType {
			continue
		}
		for link := range m.store.links {
			if link[1] == item.ID && subtree[link[0]] {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

func (m *mockItemRepository) Update(ctx context.Context, item *domain.Item) error {
	if _, ok := m.store.items[item.ID]; !ok {
		return repository.ErrItemNotFound
	}
	cp := *item
	m.store.items[item.ID] = &cp
	return nil
}

func (m *mockItemRepository) Delete(ctx context.Context, id int64) (*domain.Item, error) {
	item, ok := m.store.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	delete(m.store.items, id)
	for link := range m.store.links {
		if link[1] == id {
			delete(m.store.links, link)
		}
	}
	return item, nil
}

func (m *mockItemRepository) DecrementStock(ctx context.Context, id int64, count int) error {
	item, ok := m.store.items[id]
	if !ok || item.Stock < count {
		return repository.ErrInsufficientStock
	}
	item.Stock -= count
	return nil
}

type mockOrderRepository struct{ store *memStore }

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = m.store.id()
	for _, line := range order.Items {
		line.ID = m.store.id()
		line.OrderID = order.ID
	}
	if order.Delivery != nil {
		order.Delivery.ID = m.store.id()
		order.Delivery.OrderID = order.ID
	}
	m.store.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, ok := m.store.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) ListByMember(ctx context.Context, memberID int64) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, order := range m.store.orders {
		if order.MemberID == memberID {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fixture bundles a store with every mock repository over it.
type fixture struct {
	store      *memStore
	tx         *mockTransactor
	members    *mockMemberRepository
	admins     *mockAdministratorRepository
	tokens     *mockRefreshTokenRepository
	categories *mockCategoryRepository
	items      *mockItemRepository
	orders     *mockOrderRepository
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{
		store:      store,
		tx:         &mockTransactor{store: store},
		members:    &mockMemberRepository{store: store},
		admins:     &mockAdministratorRepository{store: store},
		tokens:     &mockRefreshTokenRepository{store: store},
		categories: &mockCategoryRepository{store: store},
		items:      &mockItemRepository{store: store},
		orders:     &mockOrderRepository{store: store},
	}
}
