package models

// EquipmentSlot 装备槽位
type EquipmentSlot string

const (
	SlotHead   EquipmentSlot = "head"
	SlotChest  EquipmentSlot = "chest"
	SlotLegs   EquipmentSlot = "legs"
	SlotFeet   EquipmentSlot = "feet"
	SlotArms   EquipmentSlot = "arms"
	SlotHands  EquipmentSlot = "hands"
	SlotWeapon EquipmentSlot = "weapon"
)

// EquipmentSlots 全部装备槽位，顺序固定
var EquipmentSlots = []EquipmentSlot{SlotHead, SlotChest, SlotLegs, SlotFeet, SlotArms, SlotHands, SlotWeapon}

// ValidSlot 判断槽位是否合法
func ValidSlot(slot EquipmentSlot) bool {
	for _, s := range EquipmentSlots {
		if s == slot {
			return true
		}
	}
	return false
}

const (
	// MinStars 最低星级
	MinStars = 1
	// MaxStars 最高星级
	MaxStars = 25
	// MinLevel 最低等级
	MinLevel = 1
	// MaxLevel 最高等级
	MaxLevel = 50
)

// CharacterArchetype 角色模板（图鉴数据，只读）
type CharacterArchetype struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Element     string    `json:"element" yaml:"element"`
	Rarity      int       `json:"rarity" yaml:"rarity"`
	Stats       BaseStats `json:"stats" yaml:"stats"`
	Skills      []Skill   `json:"skills" yaml:"skills"`
	// Disabled 测试角色，不参与抽卡
	Disabled bool `json:"-" yaml:"disabled"`
}

// OwnedCharacter 玩家拥有的角色实例
type OwnedCharacter struct {
	UID    string `json:"uid"`
	BaseID string `json:"base_id"`
	Stars  int    `json:"stars"`
	Level  int    `json:"level"`
	// Stats 获得时从模板复制，升级时成长，升星时不重算
	Stats     BaseStats                `json:"stats"`
	Equipment map[EquipmentSlot]string `json:"equipment"`
}

// NewEquipmentMap 创建包含全部空槽位的装备表
func NewEquipmentMap() map[EquipmentSlot]string {
	equipment := make(map[EquipmentSlot]string, len(EquipmentSlots))
	for _, slot := range EquipmentSlots {
		equipment[slot] = ""
	}
	return equipment
}

// NewOwnedCharacter 根据模板创建1星1级角色
func NewOwnedCharacter(uid string, archetype *CharacterArchetype) *OwnedCharacter {
	return &OwnedCharacter{
		UID:       uid,
		BaseID:    archetype.ID,
		Stars:     MinStars,
		Level:     MinLevel,
		Stats:     archetype.Stats,
		Equipment: NewEquipmentMap(),
	}
}

// Clone 深拷贝
func (c *OwnedCharacter) Clone() *OwnedCharacter {
	clone := *c
	clone.Equipment = make(map[EquipmentSlot]string, len(c.Equipment))
	for slot, uid := range c.Equipment {
		clone.Equipment[slot] = uid
	}
	return &clone
}

// SlotOf 返回持有该物品的槽位
func (c *OwnedCharacter) SlotOf(itemUID string) (EquipmentSlot, bool) {
	for _, slot := range EquipmentSlots {
		if c.Equipment[slot] == itemUID {
			return slot, true
		}
	}
	return "", false
}
