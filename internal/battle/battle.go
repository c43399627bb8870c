// Package battle 回合制自动战斗结算
package battle

import (
	"fmt"
	"sort"

	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
)

// MaxRounds 回合上限，达到上限判负
const MaxRounds = 50

// Team 阵营
type Team string

const (
	// TeamAlly 我方
	TeamAlly Team = "ally"
	// TeamEnemy 敌方
	TeamEnemy Team = "enemy"
)

// Outcome 战斗结果
type Outcome string

const (
	// Victory 胜利
	Victory Outcome = "victory"
	// Defeat 失败（含平局和超时）
	Defeat Outcome = "defeat"
)

// Combatant 参战单位的输入数据
type Combatant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Attack  int    `json:"attack"`
	Defense int    `json:"defense"`
	Health  int    `json:"health"`
	Speed   int    `json:"speed"`
}

// Unit 战斗中的单位
type Unit struct {
	Combatant
	Team  Team `json:"team"`
	MaxHP int  `json:"max_hp"`
	HP    int  `json:"hp"`
}

// Alive 是否存活
func (u *Unit) Alive() bool {
	return u.HP > 0
}

// EventType 战斗事件类型
type EventType string

const (
	// EventAttack 攻击
	EventAttack EventType = "attack"
	// EventDefeated 击倒
	EventDefeated EventType = "defeated"
)

// Event 战斗日志条目
type Event struct {
	Round  int       `json:"round"`
	Type   EventType `json:"type"`
	Actor  string    `json:"actor"`
	Target string    `json:"target,omitempty"`
	Damage int       `json:"damage,omitempty"`
	Text   string    `json:"text"`
}

// Result 战斗结果
type Result struct {
	Outcome Outcome `json:"outcome"`
	Rounds  int     `json:"rounds"`
	Log     []Event `json:"log"`
	Allies  []Unit  `json:"allies"`
	Enemies []Unit  `json:"enemies"`
}

func newUnits(cs []Combatant, team Team) []*Unit {
	units := make([]*Unit, len(cs))
	for i, c := range cs {
		units[i] = &Unit{Combatant: c, Team: team, MaxHP: c.Health, HP: c.Health}
	}
	return units
}

func living(units []*Unit) []*Unit {
	alive := make([]*Unit, 0, len(units))
	for _, u := range units {
		if u.Alive() {
			alive = append(alive, u)
		}
	}
	return alive
}

func anyAlive(units []*Unit) bool {
	for _, u := range units {
		if u.Alive() {
			return true
		}
	}
	return false
}

// Damage 单次攻击伤害，至少为1
func Damage(attack, defense int) int {
	if d := attack - defense; d > 1 {
		return d
	}
	return 1
}

// Resolve 结算一场战斗。每回合按速度降序行动，速度相同时我方在前并保持输入顺序
func Resolve(allies, enemies []Combatant, src rng.Source) Result {
	allyUnits := newUnits(allies, TeamAlly)
	enemyUnits := newUnits(enemies, TeamEnemy)

	var events []Event
	rounds := 0

	for round := 1; round <= MaxRounds; round++ {
		if !anyAlive(allyUnits) || !anyAlive(enemyUnits) {
			break
		}
		rounds = round

		order := make([]*Unit, 0, len(allyUnits)+len(enemyUnits))
		order = append(order, allyUnits...)
		order = append(order, enemyUnits...)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].Speed > order[j].Speed
		})

		for _, actor := range order {
			if !actor.Alive() {
				continue
			}

			opponents := enemyUnits
			if actor.Team == TeamEnemy {
				opponents = allyUnits
			}
			targets := living(opponents)
			if len(targets) == 0 {
				break
			}

			target := targets[rng.Intn(src, len(targets))]
			dmg := Damage(actor.Attack, target.Defense)
			target.HP -= dmg
			events = append(events, Event{
				Round:  round,
				Type:   EventAttack,
				Actor:  actor.ID,
				Target: target.ID,
				Damage: dmg,
				Text:   fmt.Sprintf("%s 攻击 %s，造成 %d 点伤害", actor.Name, target.Name, dmg),
			})

			if target.HP <= 0 {
				target.HP = 0
				events = append(events, Event{
					Round: round,
					Type:  EventDefeated,
					Actor: target.ID,
					Text:  fmt.Sprintf("%s 被击倒", target.Name),
				})
			}
		}
	}

	outcome := Defeat
	if !anyAlive(enemyUnits) && anyAlive(allyUnits) {
		outcome = Victory
	}

	return Result{
		Outcome: outcome,
		Rounds:  rounds,
		Log:     events,
		Allies:  flatten(allyUnits),
		Enemies: flatten(enemyUnits),
	}
}

func flatten(units []*Unit) []Unit {
	out := make([]Unit, len(units))
	for i, u := range units {
		out[i] = *u
	}
	return out
}
