package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/apperrors"
	"github.com/robogate/robogate/internal/repository"
)

type PolicyRepo interface {
	GetCurrent(ctx context.Context, accountID string) (*model.Policy, error)
	Create(ctx context.Context, p *model.Policy) error
}

// PolicyService 管理账户的 current 风控策略
// upsert 即插入新行，最新创建的一条生效；旧行保留不删
type PolicyService struct {
	repo PolicyRepo
}

func NewPolicyService(repo PolicyRepo) *PolicyService {
	return &PolicyService{repo: repo}
}

// GetCurrent returns the authoritative policy for the account, with legacy
// fields defaulted. (nil, nil) means no policy exists: trading is
// unrestricted by design, not an error.
func (s *PolicyService) GetCurrent(ctx context.Context, accountID string) (*model.Policy, error) {
	p, err := s.repo.GetCurrent(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	p.ApplyDefaults()
	return p, nil
}

// Upsert 逐字段独立校验，越界直接拒绝并给出字段级提示，绝不静默收敛
func (s *PolicyService) Upsert(ctx context.Context, accountID string, input model.PolicyInput) (*model.Policy, error) {
	var problems []string

	p := &model.Policy{
		AccountID:           accountID,
		MaxLeverage:         model.DefaultMaxLeverage,
		MaxDailyNotionalUSD: model.DefaultMaxDailyNotional,
	}

	if input.MaxLeverage != nil {
		if *input.MaxLeverage < model.PolicyMinLeverage || *input.MaxLeverage > model.PolicyMaxLeverage {
			problems = append(problems, fmt.Sprintf("max_leverage must be between %g and %g, got %g",
				model.PolicyMinLeverage, model.PolicyMaxLeverage, *input.MaxLeverage))
		} else {
			p.MaxLeverage = *input.MaxLeverage
		}
	}

	if input.MaxDailyNotionalUSD != nil {
		if *input.MaxDailyNotionalUSD < model.PolicyMinDailyNotional || *input.MaxDailyNotionalUSD > model.PolicyMaxDailyNotional {
			problems = append(problems, fmt.Sprintf("max_daily_notional_usd must be between %g and %g, got %g",
				model.PolicyMinDailyNotional, model.PolicyMaxDailyNotional, *input.MaxDailyNotionalUSD))
		} else {
			p.MaxDailyNotionalUSD = *input.MaxDailyNotionalUSD
		}
	}

	if input.MaxDrawdownPct != nil {
		if *input.MaxDrawdownPct < model.PolicyMinDrawdownPct || *input.MaxDrawdownPct > model.PolicyMaxDrawdownPct {
			problems = append(problems, fmt.Sprintf("max_drawdown_pct must be between %g and %g, got %g",
				model.PolicyMinDrawdownPct, model.PolicyMaxDrawdownPct, *input.MaxDrawdownPct))
		} else {
			p.MaxDrawdownPct = *input.MaxDrawdownPct
		}
	}

	for _, pair := range input.AllowedPairs {
		sym := strings.TrimSpace(pair)
		if sym == "" {
			problems = append(problems, "allowed_pairs must not contain empty symbols")
			continue
		}
		p.AllowedPairs = append(p.AllowedPairs, strings.ToUpper(sym))
	}

	if len(problems) > 0 {
		return nil, apperrors.New(apperrors.CatStructural, strings.Join(problems, "; "), nil)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
