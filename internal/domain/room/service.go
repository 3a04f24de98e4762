package room

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

type Service struct {
	store     ledger.Store
	publisher realtime.Publisher
	now       func() time.Time
}

func NewService(store ledger.Store, publisher realtime.Publisher) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateRoom opens a room hosted by hostUserID.
func (s *Service) CreateRoom(ctx context.Context, hostUserID, name string) (*Room, error) {
	now := s.now()
	r := &Room{
		RoomID:                uuid.NewString(),
		HostUserID:            hostUserID,
		Name:                  strings.TrimSpace(name),
		CreatedAt:             now,
		UpdatedAt:             now,
		TreasureContributions: map[string]int64{},
	}
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Create(ctx, Key(r.RoomID), r)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("room_id", r.RoomID).Str("host_user_id", hostUserID).Msg("room created")
	return r, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var r *Room
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		r, err = Load(ctx, tx, roomID)
		return err
	})
	return r, err
}

// SetVoiceMember maps voiceUID to userID in the room. An empty userID
// removes the mapping when the member leaves the channel.
func (s *Service) SetVoiceMember(ctx context.Context, roomID, voiceUID, userID string) (*Room, error) {
	if strings.TrimSpace(voiceUID) == "" {
		return nil, ErrInvalidVoiceID
	}

	var r *Room
	err := s.store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		r, err = Load(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if r.VoiceMembers == nil {
			r.VoiceMembers = map[string]string{}
		}
		if userID == "" {
			delete(r.VoiceMembers, voiceUID)
		} else {
			r.VoiceMembers[voiceUID] = userID
		}
		r.UpdatedAt = s.now()
		return Save(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, realtime.RoomTopic(roomID), r)
	return r, nil
}
