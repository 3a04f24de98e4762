package user

import "github.com/voxroom/voxroom-api/internal/pkg/econerr"

var ErrUserNotFound = econerr.NotFound("USER_NOT_FOUND", "User not found")
