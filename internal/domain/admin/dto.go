package admin

type VerifyRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

type SetRoleRequest struct {
	TargetUserID string `json:"targetUserId" validate:"required,record_id"`
	Role         string `json:"role" validate:"required"`
}
