// skill.go

package models

// SkillKind 技能类型
type SkillKind string

const (
	// PassiveSkill 被动技能
	PassiveSkill SkillKind = "passive"
	// ActiveSkill 主动技能
	ActiveSkill SkillKind = "active"
)

// MaxActiveSkills 每个角色最多的主动技能数
const MaxActiveSkills = 2

// SkillEffect 技能效果描述
type SkillEffect struct {
	DamageMultiplier float64 `json:"damage_multiplier,omitempty" yaml:"damage_multiplier"`
	Hits             int     `json:"hits,omitempty" yaml:"hits"`
	BuffStat         StatKey `json:"buff_stat,omitempty" yaml:"buff_stat"`
	BuffAmount       int     `json:"buff_amount,omitempty" yaml:"buff_amount"`
	Status           string  `json:"status,omitempty" yaml:"status"`
}

// Skill 技能模型
type Skill struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Kind        SkillKind   `json:"kind" yaml:"kind"`
	Effect      SkillEffect `json:"effect" yaml:"effect"`
}
