// Package catalog 图鉴数据：角色模板、装备模板、材料、敌人和强化副属性表
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultData []byte

// SubstatRange 副属性随机区间
type SubstatRange struct {
	Stat models.StatKey `json:"stat" yaml:"stat"`
	Min  int            `json:"min" yaml:"min"`
	Max  int            `json:"max" yaml:"max"`
}

// Catalog 只读图鉴
type Catalog struct {
	BreakthroughMaterial string                      `yaml:"breakthrough_material"`
	LabUpgradeMaterial   string                      `yaml:"lab_upgrade_material"`
	Characters           []models.CharacterArchetype `yaml:"characters"`
	Equipment            []models.EquipmentTemplate  `yaml:"equipment"`
	Materials            []models.MaterialTemplate   `yaml:"materials"`
	Enemies              []models.EnemyArchetype     `yaml:"enemies"`
	Substats             []SubstatRange              `yaml:"substats"`

	characters map[string]*models.CharacterArchetype
	equipment  map[string]*models.EquipmentTemplate
	materials  map[string]*models.MaterialTemplate
	enemies    map[string]*models.EnemyArchetype
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default 返回内置图鉴，内置数据非法时panic
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("内置图鉴数据非法: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse 解析并校验YAML图鉴
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析图鉴失败: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// index 建立索引并校验id唯一
func (c *Catalog) index() error {
	c.characters = make(map[string]*models.CharacterArchetype, len(c.Characters))
	for i := range c.Characters {
		ch := &c.Characters[i]
		if _, dup := c.characters[ch.ID]; dup || ch.ID == "" {
			return fmt.Errorf("角色id重复或为空: %q", ch.ID)
		}
		if err := validateSkills(ch); err != nil {
			return err
		}
		c.characters[ch.ID] = ch
	}

	c.equipment = make(map[string]*models.EquipmentTemplate, len(c.Equipment))
	for i := range c.Equipment {
		eq := &c.Equipment[i]
		if _, dup := c.equipment[eq.ID]; dup || eq.ID == "" {
			return fmt.Errorf("装备id重复或为空: %q", eq.ID)
		}
		if !models.ValidSlot(eq.Slot) {
			return fmt.Errorf("装备 %s 槽位非法: %q", eq.ID, eq.Slot)
		}
		c.equipment[eq.ID] = eq
	}

	c.materials = make(map[string]*models.MaterialTemplate, len(c.Materials))
	for i := range c.Materials {
		m := &c.Materials[i]
		if _, dup := c.materials[m.ID]; dup || m.ID == "" {
			return fmt.Errorf("材料id重复或为空: %q", m.ID)
		}
		c.materials[m.ID] = m
	}

	c.enemies = make(map[string]*models.EnemyArchetype, len(c.Enemies))
	for i := range c.Enemies {
		e := &c.Enemies[i]
		if _, dup := c.enemies[e.ID]; dup || e.ID == "" {
			return fmt.Errorf("敌人id重复或为空: %q", e.ID)
		}
		c.enemies[e.ID] = e
	}

	for _, id := range []string{c.BreakthroughMaterial, c.LabUpgradeMaterial} {
		if _, ok := c.materials[id]; !ok {
			return fmt.Errorf("未知的材料: %q", id)
		}
	}

	if len(c.Substats) == 0 {
		return fmt.Errorf("副属性表为空")
	}
	for _, r := range c.Substats {
		if r.Min > r.Max {
			return fmt.Errorf("副属性 %s 区间非法: [%d, %d]", r.Stat, r.Min, r.Max)
		}
	}

	return nil
}

func validateSkills(ch *models.CharacterArchetype) error {
	passive, active := 0, 0
	for _, s := range ch.Skills {
		switch s.Kind {
		case models.PassiveSkill:
			passive++
		case models.ActiveSkill:
			active++
		default:
			return fmt.Errorf("角色 %s 技能 %s 类型非法: %q", ch.ID, s.ID, s.Kind)
		}
	}
	if passive > 1 || active > models.MaxActiveSkills {
		return fmt.Errorf("角色 %s 技能数量超出限制", ch.ID)
	}
	return nil
}

// Character 查找角色模板
func (c *Catalog) Character(id string) (*models.CharacterArchetype, bool) {
	ch, ok := c.characters[id]
	return ch, ok
}

// EquipmentTemplate 查找装备模板
func (c *Catalog) EquipmentTemplate(id string) (*models.EquipmentTemplate, bool) {
	eq, ok := c.equipment[id]
	return eq, ok
}

// Material 查找材料模板
func (c *Catalog) Material(id string) (*models.MaterialTemplate, bool) {
	m, ok := c.materials[id]
	return m, ok
}

// Enemy 查找敌人模板
func (c *Catalog) Enemy(id string) (*models.EnemyArchetype, bool) {
	e, ok := c.enemies[id]
	return e, ok
}

// Summonable 可抽取的角色，按图鉴顺序
func (c *Catalog) Summonable() []*models.CharacterArchetype {
	pool := make([]*models.CharacterArchetype, 0, len(c.Characters))
	for i := range c.Characters {
		if !c.Characters[i].Disabled {
			pool = append(pool, &c.Characters[i])
		}
	}
	return pool
}
