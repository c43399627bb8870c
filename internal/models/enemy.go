package models

// EnemyArchetype 敌人模板
type EnemyArchetype struct {
	ID    string    `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Level int       `json:"level" yaml:"level"`
	Stats BaseStats `json:"stats" yaml:"stats"`
}
