package admin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/jwt"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/password"
	"github.com/voxroom/voxroom-api/internal/pkg/ratelimit"
)

const testSecret = "test-secret"

type fixture struct {
	svc      *Service
	tokens   *jwt.Service
	wallets  *wallet.Service
	agencies *agency.Service
}

func newFixture(t *testing.T, secret string, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.SetRetryPolicy(ledger.RetryPolicy{MaxAttempts: 200, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond})
	f := &fixture{
		tokens:   jwt.NewService(testSecret, time.Hour),
		wallets:  wallet.NewService(store, nil),
		agencies: agency.NewService(store, nil),
	}
	f.svc = NewService(store, Config{Password: secret, Limiter: limiter, Tokens: f.tokens, TokenTTL: time.Hour}, f.wallets, f.agencies)
	return f
}

func TestVerifyPasswordGrantsAdminClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "open-sesame", nil)

	grant, err := f.svc.VerifyPassword(ctx, "alice", "open-sesame", "10.0.0.1")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	claims, err := f.tokens.ValidateAccessToken(grant.AccessToken)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != "alice" || !claims.Admin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	logs, err := f.svc.ListAuditLogs(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != ActionGrant || logs[0].IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected audit trail: %+v", logs)
	}
}

func TestVerifyPasswordAcceptsBcryptHash(t *testing.T) {
	hash, err := password.Hash("open-sesame")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f := newFixture(t, hash, nil)

	if _, err := f.svc.VerifyPassword(context.Background(), "alice", "open-sesame", ""); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if _, err := f.svc.VerifyPassword(context.Background(), "alice", "wrong", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestVerifyPasswordRejections(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, "open-sesame", nil)
	if _, err := f.svc.VerifyPassword(ctx, "alice", "nope", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	logs, _ := f.svc.ListAuditLogs(ctx, "", 10)
	if len(logs) != 1 || logs[0].Action != ActionGrantDenied {
		t.Fatalf("expected denied attempt audited, got %+v", logs)
	}

	unset := newFixture(t, "", nil)
	if _, err := unset.svc.VerifyPassword(ctx, "alice", "", ""); !errors.Is(err, ErrGateNotConfigured) {
		t.Fatalf("expected ErrGateNotConfigured, got %v", err)
	}
}

func TestVerifyPasswordThrottled(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	user := fmt.Sprintf("throttle-%d", time.Now().UnixNano())
	limiter := ratelimit.New(client, "admin_test", 3, time.Minute)
	t.Cleanup(func() { limiter.Reset(ctx, user) })
	f := newFixture(t, "open-sesame", limiter)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.VerifyPassword(ctx, user, "wrong", ""); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("attempt %d: expected ErrInvalidPassword, got %v", i+1, err)
		}
	}
	if _, err := f.svc.VerifyPassword(ctx, user, "open-sesame", ""); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestGetUserCombinesRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "x", nil)

	if _, err := f.svc.GetUser(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, _, err := f.wallets.CreateWallet(ctx, "alice"); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	view, err := f.svc.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if view.Wallet == nil || view.Wallet.Coins != wallet.InitialCoins || view.Agency != nil {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, _, err := f.agencies.CreateAgency(ctx, "alice"); err != nil {
		t.Fatalf("create agency: %v", err)
	}
	view, err = f.svc.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if view.Agency == nil || view.Agency.AgencyCode == "" {
		t.Fatalf("expected agency node, got %+v", view)
	}
}

func TestSetRoleSeedsChiefOfficial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "x", nil)
	if _, _, err := f.agencies.CreateAgency(ctx, "boss"); err != nil {
		t.Fatalf("create agency: %v", err)
	}

	node, err := f.svc.SetRole(ctx, "ops", "boss", agency.RoleChiefOfficial)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if node.Role != agency.RoleChiefOfficial {
		t.Fatalf("unexpected role %q", node.Role)
	}
	if _, err := f.svc.SetRole(ctx, "ops", "boss", agency.Role("Emperor")); !errors.Is(err, agency.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	logs, _ := f.svc.ListAuditLogs(ctx, "ops", 10)
	if len(logs) != 1 || logs[0].EntityID != "boss" || logs[0].Detail != string(agency.RoleChiefOfficial) {
		t.Fatalf("unexpected audit trail: %+v", logs)
	}
}

func TestCatalogListsGiftsAndPacks(t *testing.T) {
	f := newFixture(t, "x", nil)
	c := f.svc.Catalog()
	if len(c.Gifts) == 0 || len(c.Packs) == 0 {
		t.Fatalf("unexpected catalog: %+v", c)
	}
}
