package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/gift"
	"github.com/voxroom/voxroom-api/internal/domain/recharge"
	"github.com/voxroom/voxroom-api/internal/domain/user"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/password"
	"github.com/voxroom/voxroom-api/internal/pkg/ratelimit"
)

// TokenIssuer signs caller tokens; admin grants carry the admin claim.
type TokenIssuer interface {
	GenerateAccessToken(userID string, admin bool) (string, error)
}

type Config struct {
	// Password is a bcrypt hash or, in development, the plain value.
	Password string
	Limiter  *ratelimit.Limiter
	Tokens   TokenIssuer
	TokenTTL time.Duration
}

// Grant is returned after a successful password check.
type Grant struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service backs the operator console
type Service struct {
	store    ledger.Store
	cfg      Config
	wallets  *wallet.Service
	agencies *agency.Service
	now      func() time.Time
}

func NewService(store ledger.Store, cfg Config, wallets *wallet.Service, agencies *agency.Service) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		wallets:  wallets,
		agencies: agencies,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// VerifyPassword checks the shared admin password and, on success, issues
// a token carrying the admin claim for userID.
func (s *Service) VerifyPassword(ctx context.Context, userID, pwd, ip string) (*Grant, error) {
	if s.cfg.Password == "" || s.cfg.Tokens == nil {
		return nil, ErrGateNotConfigured
	}

	allowed, err := s.cfg.Limiter.Allow(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("admin throttle unavailable")
	}
	if !allowed {
		return nil, ErrTooManyAttempts
	}

	if !password.Matches(pwd, s.cfg.Password) {
		s.logAction(ctx, userID, ActionGrantDenied, "user", userID, "", ip)
		return nil, ErrInvalidPassword
	}
	s.cfg.Limiter.Reset(ctx, userID)

	token, err := s.cfg.Tokens.GenerateAccessToken(userID, true)
	if err != nil {
		return nil, err
	}
	s.logAction(ctx, userID, ActionGrant, "user", userID, "", ip)
	return &Grant{AccessToken: token, ExpiresAt: s.now().Add(s.cfg.TokenTTL)}, nil
}

// GetUser gathers a user's wallet, agency node and VIP level. Missing
// parts are left out; a user with none of them is not found.
func (s *Service) GetUser(ctx context.Context, userID string) (*UserView, error) {
	view := &UserView{UserID: userID}

	w, err := s.wallets.GetWallet(ctx, userID)
	switch {
	case err == nil:
		view.Wallet = w
		view.VipLevel = w.VipLevel
	case !errors.Is(err, wallet.ErrWalletNotFound):
		return nil, err
	}

	node, err := s.agencies.GetAgency(ctx, userID)
	switch {
	case err == nil:
		view.Agency = node
	case !errors.Is(err, agency.ErrTargetNotFound):
		return nil, err
	}

	profile, err := user.Lookup(ctx, s.store, userID)
	switch {
	case err == nil:
		view.VipLevel = profile.VipLevel
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, err
	}

	if view.Wallet == nil && view.Agency == nil && profile == nil {
		return nil, ErrUserNotFound
	}
	return view, nil
}

func (s *Service) Catalog() *Catalog {
	return &Catalog{Gifts: gift.Catalog(), Packs: recharge.Packs()}
}

// SetRole lets an operator place any user in the hierarchy, including the
// first Chief Official who can then assign roles in-app.
func (s *Service) SetRole(ctx context.Context, adminID, targetUserID string, role agency.Role) (*agency.Node, error) {
	node, err := s.agencies.SetRole(ctx, targetUserID, role)
	if err != nil {
		return nil, err
	}
	s.logAction(ctx, adminID, ActionSetRole, "agency", targetUserID, string(role), "")
	return node, nil
}

const maxAuditPage = 100

// ListAuditLogs returns the newest audit entries first.
func (s *Service) ListAuditLogs(ctx context.Context, adminID string, limit int) ([]AuditLog, error) {
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}
	q := ledger.Query{
		Collection: ledger.AdminAudit,
		OrderBy:    &ledger.Sort{Field: "createdAt", Kind: ledger.SortTime, Desc: true},
		Limit:      limit,
	}
	if adminID != "" {
		q.Filters = []ledger.Filter{ledger.Where("adminId", ledger.Eq, adminID)}
	}

	docs, err := ledger.Find(ctx, s.store, q)
	if err != nil {
		return nil, err
	}
	out := make([]AuditLog, 0, len(docs))
	for _, d := range docs {
		var entry AuditLog
		if err := d.Decode(&entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// logAction writes an audit entry. Failures are logged, never returned:
// the audited action already happened.
func (s *Service) logAction(ctx context.Context, adminID, action, entityType, entityID, detail, ip string) {
	entry := AuditLog{
		ID:         uuid.NewString(),
		AdminID:    adminID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		IPAddress:  ip,
		CreatedAt:  s.now(),
	}
	err := s.store.RunTx(context.WithoutCancel(ctx), func(ctx context.Context, tx ledger.Tx) error {
		return tx.Create(ctx, ledger.K(ledger.AdminAudit, entry.ID), entry)
	})
	if err != nil {
		log.Error().Err(err).Str("admin_id", adminID).Str("action", action).Msg("failed to write audit log")
	}
}
