// stats.go

package models

// StatKey 属性键
type StatKey string

const (
	StatAttack      StatKey = "attack"
	StatDefense     StatKey = "defense"
	StatHealth      StatKey = "health"
	StatSpeed       StatKey = "speed"
	StatCritRate    StatKey = "crit_rate"
	StatCritDmg     StatKey = "crit_dmg"
	StatDefPen      StatKey = "def_pen"
	StatRegen       StatKey = "regen"
	StatEvasion     StatKey = "evasion"
	StatDoubleHit   StatKey = "double_hit"
	StatCounterRate StatKey = "counter_rate"
)

// PrimaryStatKeys 四项基础属性
var PrimaryStatKeys = []StatKey{StatAttack, StatDefense, StatHealth, StatSpeed}

// BaseStats 基础属性（攻击、防御、生命、速度）
type BaseStats struct {
	Attack  int `json:"attack" yaml:"attack"`
	Defense int `json:"defense" yaml:"defense"`
	Health  int `json:"health" yaml:"health"`
	Speed   int `json:"speed" yaml:"speed"`
}

// Get 按键读取基础属性，非基础属性返回0
func (s BaseStats) Get(key StatKey) int {
	switch key {
	case StatAttack:
		return s.Attack
	case StatDefense:
		return s.Defense
	case StatHealth:
		return s.Health
	case StatSpeed:
		return s.Speed
	}
	return 0
}

// FinalStats 最终属性，由基础属性、星级、装备和副属性推导，不存档
type FinalStats struct {
	Attack      int `json:"attack"`
	Defense     int `json:"defense"`
	Health      int `json:"health"`
	Speed       int `json:"speed"`
	CritRate    int `json:"crit_rate"`
	CritDmg     int `json:"crit_dmg"`
	DefPen      int `json:"def_pen"`
	Regen       int `json:"regen"`
	Evasion     int `json:"evasion"`
	DoubleHit   int `json:"double_hit"`
	CounterRate int `json:"counter_rate"`
}

// Add 按键累加属性，未知键忽略
func (s *FinalStats) Add(key StatKey, value int) {
	switch key {
	case StatAttack:
		s.Attack += value
	case StatDefense:
		s.Defense += value
	case StatHealth:
		s.Health += value
	case StatSpeed:
		s.Speed += value
	case StatCritRate:
		s.CritRate += value
	case StatCritDmg:
		s.CritDmg += value
	case StatDefPen:
		s.DefPen += value
	case StatRegen:
		s.Regen += value
	case StatEvasion:
		s.Evasion += value
	case StatDoubleHit:
		s.DoubleHit += value
	case StatCounterRate:
		s.CounterRate += value
	}
}

// Get 按键读取属性
func (s FinalStats) Get(key StatKey) int {
	switch key {
	case StatAttack:
		return s.Attack
	case StatDefense:
		return s.Defense
	case StatHealth:
		return s.Health
	case StatSpeed:
		return s.Speed
	case StatCritRate:
		return s.CritRate
	case StatCritDmg:
		return s.CritDmg
	case StatDefPen:
		return s.DefPen
	case StatRegen:
		return s.Regen
	case StatEvasion:
		return s.Evasion
	case StatDoubleHit:
		return s.DoubleHit
	case StatCounterRate:
		return s.CounterRate
	}
	return 0
}
