package service

import (
	"context"
	"errors"
	"time"

	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/repository"
)

type CredentialRepo interface {
	GetByAddress(ctx context.Context, accountAddress string) (*model.DelegatedCredential, error)
}

// CredentialProvider 提供账户的有效委托凭证
// 返回 (nil, nil) 表示不可恢复地缺失，需要用户重新认证
type CredentialProvider interface {
	GetValidCredential(ctx context.Context, accountAddress string) (*model.DelegatedCredential, error)
}

// StoredCredentialProvider reads credentials written by the external
// onboarding flow. Refresh-on-expiry happens in that flow; an expired row
// here is simply treated as absent.
type StoredCredentialProvider struct {
	repo CredentialRepo
	now  func() time.Time
}

func NewStoredCredentialProvider(repo CredentialRepo, now func() time.Time) *StoredCredentialProvider {
	if now == nil {
		now = time.Now
	}
	return &StoredCredentialProvider{repo: repo, now: now}
}

func (p *StoredCredentialProvider) GetValidCredential(ctx context.Context, accountAddress string) (*model.DelegatedCredential, error) {
	cred, err := p.repo.GetByAddress(ctx, accountAddress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if cred.Expired(p.now()) {
		return nil, nil
	}
	return cred, nil
}
