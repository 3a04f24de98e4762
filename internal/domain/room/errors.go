package room

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var (
	ErrRoomNotFound   = econerr.NotFound("ROOM_NOT_FOUND", "Room not found")
	ErrInvalidVoiceID = econerr.Validation("INVALID_VOICE_UID", "Invalid voice id")
)
