package agency

import (
	"context"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

const (
	codeLength = 6
	minCodeLen = 4

	// DefaultMaxDepth bounds the upward commission walk.
	DefaultMaxDepth = 10
)

// Code alphabet without 0/O and 1/I.
var codeChars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

type Service struct {
	store     ledger.Store
	publisher realtime.Publisher
	maxDepth  int
	now       func() time.Time
	newCode   func() string
}

func NewService(store ledger.Store, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		maxDepth:  DefaultMaxDepth,
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   func() string { return uniuri.NewLenChars(codeLength, codeChars) },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetMaxDepth limits how many ancestors a recharge pays. 1 pays only the
// direct parent.
func (s *Service) SetMaxDepth(depth int) {
	if depth > 0 {
		s.maxDepth = depth
	}
}

func loadNode(ctx context.Context, tx ledger.Tx, userID string) (*Node, bool, error) {
	var n Node
	found, err := tx.Get(ctx, nodeKey(userID), &n)
	if err != nil || !found {
		return nil, false, err
	}
	return &n, true, nil
}

// CreateAgency returns the caller's node, creating it with a fresh code on
// first use. The code registry entry is written in the same commit so the
// code resolves immediately.
func (s *Service) CreateAgency(ctx context.Context, userID string) (*Node, bool, error) {
	var (
		node    *Node
		created bool
	)
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, found, err := loadNode(ctx, tx, userID)
		if err != nil {
			return err
		}
		if found {
			node, created = existing, false
			return nil
		}

		code, err := s.allocateCode(ctx, tx)
		if err != nil {
			return err
		}

		now := s.now()
		node = &Node{
			UserID:     userID,
			Role:       DefaultRole,
			AgencyCode: code,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		created = true
		if err := tx.Create(ctx, codeKey(code), CodeEntry{Code: code, UserID: userID, CreatedAt: now}); err != nil {
			return err
		}
		return tx.Create(ctx, nodeKey(userID), node)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Info().Str("user_id", userID).Str("agency_code", node.AgencyCode).Msg("agency created")
		s.publisher.Publish(ctx, realtime.AgencyTopic(userID), node)
	}
	return node, created, nil
}

// allocateCode draws a code, regenerating once if the first is taken.
func (s *Service) allocateCode(ctx context.Context, tx ledger.Tx) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		code := s.newCode()
		var entry CodeEntry
		taken, err := tx.Get(ctx, codeKey(code), &entry)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeUnavailable
}

// NormalizeCode trims and upper-cases a typed invitation code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// BindAgency attaches the caller under the owner of code. A node binds at
// most once.
func (s *Service) BindAgency(ctx context.Context, userID, code string) (*Node, error) {
	code = NormalizeCode(code)
	if len(code) < minCodeLen {
		return nil, ErrInvalidCode
	}

	var node *Node
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		n, found, err := loadNode(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrAgencyNotFound
		}
		if n.ParentUserID != "" {
			return ErrAlreadyBound
		}

		var entry CodeEntry
		ok, err := tx.Get(ctx, codeKey(code), &entry)
		if err != nil {
			return err
		}
		if !ok || entry.UserID == userID {
			return ErrUnknownCode
		}

		// Refuse codes from the caller's own downline so binds can never
		// close a loop.
		if err := s.checkAncestry(ctx, tx, entry.UserID, userID); err != nil {
			return err
		}

		now := s.now()
		n.ParentUserID = entry.UserID
		n.BoundAt = &now
		n.UpdatedAt = now
		node = n
		return tx.Set(ctx, nodeKey(userID), n)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("parent_user_id", node.ParentUserID).Msg("agency bound")
	s.publisher.Publish(ctx, realtime.AgencyTopic(userID), node)
	return node, nil
}

// checkAncestry walks up from start and fails if it meets userID.
func (s *Service) checkAncestry(ctx context.Context, tx ledger.Tx, start, userID string) error {
	seen := map[string]bool{}
	current := start
	for depth := 0; depth < s.maxDepth && current != ""; depth++ {
		if current == userID {
			return ErrDownlineCode
		}
		if seen[current] {
			return nil
		}
		seen[current] = true
		n, found, err := loadNode(ctx, tx, current)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		current = n.ParentUserID
	}
	if current == userID {
		return ErrDownlineCode
	}
	return nil
}

// AssignRole lets an admin-role node change another node's role.
func (s *Service) AssignRole(ctx context.Context, adminUserID, targetUserID string, role Role) (*Node, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	return s.setRole(ctx, targetUserID, role, func(ctx context.Context, tx ledger.Tx) error {
		admin, found, err := loadNode(ctx, tx, adminUserID)
		if err != nil {
			return err
		}
		if !found || !admin.Role.CanAssignRoles() {
			return ErrAdminOnly
		}
		return nil
	})
}

// SetRole changes a role without the in-hierarchy admin check. Operators
// use it to seed the first Chief Official.
func (s *Service) SetRole(ctx context.Context, targetUserID string, role Role) (*Node, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	return s.setRole(ctx, targetUserID, role, nil)
}

func (s *Service) setRole(ctx context.Context, targetUserID string, role Role, authorize ledger.TxFunc) (*Node, error) {
	var node *Node
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if authorize != nil {
			if err := authorize(ctx, tx); err != nil {
				return err
			}
		}
		n, found, err := loadNode(ctx, tx, targetUserID)
		if err != nil {
			return err
		}
		if !found {
			return ErrTargetNotFound
		}
		n.Role = role
		n.UpdatedAt = s.now()
		node = n
		return tx.Set(ctx, nodeKey(targetUserID), n)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", targetUserID).Str("role", string(role)).Msg("agency role set")
	s.publisher.Publish(ctx, realtime.AgencyTopic(targetUserID), node)
	return node, nil
}

func (s *Service) GetAgency(ctx context.Context, userID string) (*Node, error) {
	var n Node
	found, err := ledger.Get(ctx, s.store, nodeKey(userID), &n)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrTargetNotFound
	}
	return &n, nil
}

const maxCommissionPage = 100

// ListCommissions returns commissions credited to userID, newest first.
func (s *Service) ListCommissions(ctx context.Context, userID string, limit int) ([]CommissionRecord, error) {
	if limit <= 0 || limit > maxCommissionPage {
		limit = maxCommissionPage
	}
	docs, err := ledger.Find(ctx, s.store, ledger.Query{
		Collection: ledger.CommissionHistory,
		Filters:    []ledger.Filter{ledger.Where("parentUserId", ledger.Eq, userID)},
		OrderBy:    &ledger.Sort{Field: "createdAt", Kind: ledger.SortTime, Desc: true},
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]CommissionRecord, 0, len(docs))
	for _, d := range docs {
		var c CommissionRecord
		if err := d.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
