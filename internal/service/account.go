package service

import (
	"context"
	"errors"

	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/logger"
	"github.com/robogate/robogate/internal/repository"
)

type AccountRepo interface {
	AccountStore
	GetByUserID(ctx context.Context, userID string) (*model.Account, error)
	Create(ctx context.Context, acc *model.Account) error
}

// AccountService 负责 robo 账户的首次开通
// 账户只在用户第一次 onboarding 时创建，之后重复调用返回同一账户
type AccountService struct {
	repo AccountRepo
}

func NewAccountService(repo AccountRepo) *AccountService {
	return &AccountService{repo: repo}
}

// Onboard creates the account for the user if it does not already exist.
func (s *AccountService) Onboard(ctx context.Context, input model.CreateAccountInput) (*model.Account, error) {
	existing, err := s.repo.GetByUserID(ctx, input.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	acc := &model.Account{
		UserID:  input.UserID,
		Address: input.Address,
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}
	logger.Info("robo account onboarded", "account_id", acc.ID, "user_id", acc.UserID)
	return acc, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	return s.repo.GetByID(ctx, id)
}
