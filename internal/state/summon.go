package state

import (
	"context"
	"errors"

	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
)

const (
	// SummonTicketCost 单抽消耗的抽卡券
	SummonTicketCost = 1
	// MaxSummonCount 一次最多抽取次数
	MaxSummonCount = 10
)

// ErrInvalidSummonCount 抽卡次数非法
var ErrInvalidSummonCount = errors.New("抽卡次数非法")

// PickSummons 从可抽取角色中均匀随机选择count个模板id
func PickSummons(env Env, count int) []string {
	pool := env.Catalog.Summonable()
	if len(pool) == 0 || count <= 0 {
		return nil
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = pool[rng.Intn(env.Rand, len(pool))].ID
	}
	return ids
}

// SummonAction 构建抽卡动作，单抽为RollCharacter，多抽为RollBatch
func SummonAction(baseIDs []string) Action {
	cost := int64(len(baseIDs)) * SummonTicketCost
	if len(baseIDs) == 1 {
		return RollCharacter{BaseID: baseIDs[0], Cost: cost}
	}
	return RollBatch{BaseIDs: baseIDs, Cost: cost}
}

// Summon 抽卡。返回抽到的模板id和动作是否被接受
func (s *Store) Summon(ctx context.Context, count int) ([]string, bool, error) {
	if count <= 0 || count > MaxSummonCount {
		return nil, false, ErrInvalidSummonCount
	}

	ids := PickSummons(s.env, count)
	if len(ids) == 0 {
		return nil, false, nil
	}

	ok, err := s.Dispatch(ctx, SummonAction(ids))
	if !ok {
		return nil, false, err
	}
	return ids, true, err
}
