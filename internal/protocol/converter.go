package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

var (
	// ErrUnknownAction 未知动作
	ErrUnknownAction = errors.New("未知动作")
	// ErrForbiddenAction 客户端不允许直接发起的动作
	ErrForbiddenAction = errors.New("不允许的动作")
)

// ActionPayload 客户端提交的动作
type ActionPayload struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// clientActions 客户端可直接发起的动作，货币、抽卡和战斗奖励只能由服务端产生
var clientActions = map[string]bool{
	state.LevelUp{}.Name():           true,
	state.EquipItem{}.Name():         true,
	state.UnequipItem{}.Name():       true,
	state.UpgradeItem{}.Name():       true,
	state.ToggleArenaRoster{}.Name(): true,
	state.AssignLabChar{}.Name():     true,
	state.RemoveLabChar{}.Name():     true,
	state.UpgradeLab{}.Name():        true,
	state.ClaimLabGold{}.Name():      true,
}

// IsClientAction 是否允许客户端直接发起
func IsClientAction(name string) bool {
	return clientActions[name]
}

func decodeParams[T state.Action](params json.RawMessage) (state.Action, error) {
	var a T
	if len(params) == 0 || string(params) == "null" {
		return a, nil
	}
	if err := json.Unmarshal(params, &a); err != nil {
		return nil, fmt.Errorf("解析动作参数失败: %w", err)
	}
	return a, nil
}

// DecodeAction 将动作名和参数转换为状态动作
func DecodeAction(p ActionPayload) (state.Action, error) {
	switch p.Name {
	case state.AddCurrency{}.Name():
		return decodeParams[state.AddCurrency](p.Params)
	case state.SpendCurrency{}.Name():
		return decodeParams[state.SpendCurrency](p.Params)
	case state.RollCharacter{}.Name():
		return decodeParams[state.RollCharacter](p.Params)
	case state.RollBatch{}.Name():
		return decodeParams[state.RollBatch](p.Params)
	case state.LevelUp{}.Name():
		return decodeParams[state.LevelUp](p.Params)
	case state.EquipItem{}.Name():
		return decodeParams[state.EquipItem](p.Params)
	case state.UnequipItem{}.Name():
		return decodeParams[state.UnequipItem](p.Params)
	case state.UpgradeItem{}.Name():
		return decodeParams[state.UpgradeItem](p.Params)
	case state.ToggleArenaRoster{}.Name():
		return decodeParams[state.ToggleArenaRoster](p.Params)
	case state.AssignLabChar{}.Name():
		return decodeParams[state.AssignLabChar](p.Params)
	case state.RemoveLabChar{}.Name():
		return decodeParams[state.RemoveLabChar](p.Params)
	case state.UpgradeLab{}.Name():
		return decodeParams[state.UpgradeLab](p.Params)
	case state.ClaimLabGold{}.Name():
		return decodeParams[state.ClaimLabGold](p.Params)
	case state.BattleWin{}.Name():
		return decodeParams[state.BattleWin](p.Params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, p.Name)
	}
}

// DecodeClientAction 解析客户端动作，拒绝服务端专用动作
func DecodeClientAction(p ActionPayload) (state.Action, error) {
	if !IsClientAction(p.Name) {
		if _, err := DecodeAction(p); errors.Is(err, ErrUnknownAction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrForbiddenAction, p.Name)
	}
	return DecodeAction(p)
}
