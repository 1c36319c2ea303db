package users

import (
	"context"
	"log/slog"
	"time"

	domainuser "halfandhalf/internal/domain/user"
)

// Service manages the per-user blacklist. The blacklist only hides
// posts from the listing; it grants no access control and blocked
// users may still message.
type Service struct {
	Users  domainuser.Repository
	Logger *slog.Logger
}

func (s *Service) Blacklist(ctx context.Context, userID string) ([]string, error) {
	u, err := s.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return nil, err
	}
	return append([]string(nil), u.BlockedUserIDs...), nil
}

func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	u, err := s.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return err
	}
	if err := u.Block(targetID, time.Now()); err != nil {
		return err
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("user blocked", "user_id", userID, "target_id", targetID)
	}
	return nil
}

func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	u, err := s.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		return err
	}
	u.Unblock(targetID, time.Now())
	return s.Users.Save(ctx, u)
}
