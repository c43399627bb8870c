package models

// ItemType 物品类型
type ItemType string

const (
	// ItemEquipment 装备
	ItemEquipment ItemType = "equipment"
	// ItemMaterial 材料
	ItemMaterial ItemType = "material"
)

// MaxEnhancement 装备最高强化等级
const MaxEnhancement = 10

// EquipmentTemplate 装备模板
type EquipmentTemplate struct {
	ID     string        `json:"id" yaml:"id"`
	Name   string        `json:"name" yaml:"name"`
	Slot   EquipmentSlot `json:"slot" yaml:"slot"`
	Stats  BaseStats     `json:"stats" yaml:"stats"`
	Rarity string        `json:"rarity" yaml:"rarity"`
}

// MaterialTemplate 材料模板
type MaterialTemplate struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Rarity      string `json:"rarity" yaml:"rarity"`
}

// SubstatRoll 强化时追加的副属性
type SubstatRoll struct {
	Stat  StatKey `json:"stat"`
	Value int     `json:"value"`
}

// ItemInstance 玩家背包中的物品
type ItemInstance struct {
	UID        string   `json:"uid"`
	TemplateID string   `json:"template_id"`
	Type       ItemType `json:"type"`

	// 装备字段
	Slot       EquipmentSlot `json:"slot,omitempty"`
	Stats      BaseStats     `json:"stats"`
	Level      int           `json:"level"`
	Substats   []SubstatRoll `json:"substats,omitempty"`
	EquippedBy string        `json:"equipped_by,omitempty"`

	// 材料字段
	Count int `json:"count,omitempty"`
}

// NewEquipmentInstance 根据模板创建未强化装备
func NewEquipmentInstance(uid string, tpl *EquipmentTemplate) *ItemInstance {
	return &ItemInstance{
		UID:        uid,
		TemplateID: tpl.ID,
		Type:       ItemEquipment,
		Slot:       tpl.Slot,
		Stats:      tpl.Stats,
	}
}

// IsEquipment 是否为装备
func (i *ItemInstance) IsEquipment() bool {
	return i.Type == ItemEquipment
}

// Clone 深拷贝
func (i *ItemInstance) Clone() *ItemInstance {
	clone := *i
	if i.Substats != nil {
		clone.Substats = make([]SubstatRoll, len(i.Substats))
		copy(clone.Substats, i.Substats)
	}
	return &clone
}
