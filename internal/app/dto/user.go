package dto

import (
	"time"

	domainuser "halfandhalf/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

type Blacklist struct {
	BlockedUserIDs []string `json:"blocked_user_ids"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:        string(user.ID),
		Email:     user.Email,
		Anonymous: user.Anonymous,
		CreatedAt: user.CreatedAt,
	}
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}

func NewBlacklist(ids []string) Blacklist {
	if ids == nil {
		ids = []string{}
	}
	return Blacklist{BlockedUserIDs: ids}
}
