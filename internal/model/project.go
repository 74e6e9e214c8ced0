// Package model 包含了应用的数据模型定义。
package model

import "time"

// Project 对应于数据库中的 projects 表。
// 每个项目是一组文档及其向量集合的隔离边界。
type Project struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Project) TableName() string {
	return "projects"
}
