package models

// Drops 战斗奖励
type Drops struct {
	Currency int64 `json:"currency"`
	Tickets  int64 `json:"tickets"`
	// Materials 材料模板id，每个条目计1个
	Materials []string `json:"materials,omitempty"`
	// Equipment 装备模板id，每个条目生成一件新装备
	Equipment []string `json:"equipment,omitempty"`
}

// Empty 是否没有任何奖励
func (d Drops) Empty() bool {
	return d.Currency == 0 && d.Tickets == 0 && len(d.Materials) == 0 && len(d.Equipment) == 0
}
