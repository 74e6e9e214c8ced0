package model

import "time"

// DataChunk 对应于数据库中的 data_chunks 表。
// 文档经 Tika 提取并切分后，每个分块落库为一行，作为索引流水线的分页数据源。
type DataChunk struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID  uint      `gorm:"not null;index" json:"projectId"`
	SourceFile string    `gorm:"type:varchar(255);not null;index" json:"sourceFile"`
	ChunkText  string    `gorm:"type:text;not null" json:"chunkText"`
	ChunkOrder int       `gorm:"not null" json:"chunkOrder"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (DataChunk) TableName() string {
	return "data_chunks"
}
