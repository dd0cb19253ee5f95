package repository

import (
	"context"
	"testing"
	"time"

	"shop-api/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestMember(email string) *domain.Member {
	return &domain.Member{
		Name:         "Kim",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuu0123456789012345678901234567890",
		Zip:          "04524",
		Addr1:        "Sejong-daero 110",
		Addr2:        "Jung-gu",
	}
}

func countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestProperty_DuplicateEmailIsRejected(t *testing.T) {
	resetDB(t)
	repo := NewMemberRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("a second member with the same email is never stored", prop.ForAll(
		func(email string, password string) bool {
			_, _ = testDB.Exec("DELETE FROM members WHERE email = $1", email)

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				return false
			}

			first := newTestMember(email)
			first.PasswordHash = string(hash)
			if err := repo.Create(ctx, first); err != nil {
				t.Logf("Failed to create member: %v", err)
				return false
			}

			second := newTestMember(email)
			second.Name = "Lee"
			if err := repo.Create(ctx, second); err != ErrMemberAlreadyExists {
				t.Logf("Expected ErrMemberAlreadyExists, got %v", err)
				return false
			}

			var n int
			if err := testDB.QueryRow("SELECT COUNT(*) FROM members WHERE email = $1", email).Scan(&n); err != nil {
				return false
			}
			stored, err := repo.FindByEmail(ctx, email)
			if err != nil {
				return false
			}
			return n == 1 && stored.Name == "Kim" &&
				bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMemberRepository_UpdateAndList(t *testing.T) {
	resetDB(t)
	repo := NewMemberRepository(testDB)
	ctx := context.Background()

	a := newTestMember("a@example.com")
	b := newTestMember("b@example.com")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	a.Name = "Park"
	a.Zip = "06236"
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Park", got.Name)
	assert.Equal(t, "06236", got.Zip)
	assert.Equal(t, "a@example.com", got.Email)

	members, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, a.ID, members[0].ID)
	assert.Equal(t, b.ID, members[1].ID)

	missing := newTestMember("c@example.com")
	missing.ID = 9999
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrMemberNotFound)
}

func TestMemberRepository_DeleteMissingLeavesTableUnchanged(t *testing.T) {
	resetDB(t)
	repo := NewMemberRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestMember("keep@example.com")))
	before := countRows(t, "members")

	err := repo.Delete(ctx, 424242)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	assert.Equal(t, before, countRows(t, "members"))
}

func TestMemberRepository_DeleteCascadesOrders(t *testing.T) {
	resetDB(t)
	members := NewMemberRepository(testDB)
	orders := NewOrderRepository(testDB)
	ctx := context.Background()

	member := newTestMember("gone@example.com")
	require.NoError(t, members.Create(ctx, member))

	order := domain.NewOrder(member.ID, &domain.Delivery{Zip: "1", Status: domain.DeliveryStatusReady}, time.Now())
	require.NoError(t, orders.Create(ctx, order))

	require.NoError(t, members.Delete(ctx, member.ID))
	assert.Equal(t, 0, countRows(t, "orders"))
	assert.Equal(t, 0, countRows(t, "deliveries"))

	_, err := members.FindByID(ctx, member.ID)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestAdministratorRepository(t *testing.T) {
	resetDB(t)
	repo := NewAdministratorRepository(testDB)
	ctx := context.Background()

	admin := &domain.Administrator{Name: "root", Email: "admin@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, admin))
	assert.NotZero(t, admin.ID)

	dup := &domain.Administrator{Name: "other", Email: "admin@example.com", PasswordHash: "hash"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrAdministratorAlreadyExists)

	got, err := repo.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = repo.FindByID(ctx, admin.ID+1)
	assert.ErrorIs(t, err, ErrAdministratorNotFound)
}

func TestRefreshTokenRepository(t *testing.T) {
	resetDB(t)
	repo := NewRefreshTokenRepository(testDB)
	ctx := context.Background()

	token := &domain.RefreshToken{
		ID:          uuid.New(),
		SubjectType: domain.RoleMember,
		SubjectID:   7,
		Token:       uuid.NewString(),
		ExpiresAt:   time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(ctx, token))

	got, err := repo.FindByToken(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.ID, got.ID)
	assert.Equal(t, int64(7), got.SubjectID)

	require.NoError(t, repo.RevokeAllForSubject(ctx, domain.RoleMember, 7))
	_, err = repo.FindByToken(ctx, token.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	assert.ErrorIs(t, repo.Revoke(ctx, "missing"), ErrRefreshTokenNotFound)
}
