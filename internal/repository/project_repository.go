// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"

	"doc-qa-go/internal/model"

	"gorm.io/gorm"
)

// ProjectRepository 定义了对 projects 表的数据操作接口。
type ProjectRepository interface {
	Create(project *model.Project) error
	GetByCode(code string) (*model.Project, error)
	GetOrCreateByCode(code string) (*model.Project, error)
	ListAll(page, pageSize int) ([]*model.Project, int64, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建一个新的 ProjectRepository 实例。
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Create 创建一个新项目。
func (r *projectRepository) Create(project *model.Project) error {
	return r.db.Create(project).Error
}

// GetByCode 根据项目编码查找项目，不存在时返回 nil。
func (r *projectRepository) GetByCode(code string) (*model.Project, error) {
	var project model.Project
	err := r.db.Where("code = ?", code).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetOrCreateByCode 按编码查找项目，不存在时创建。
func (r *projectRepository) GetOrCreateByCode(code string) (*model.Project, error) {
	project, err := r.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if project != nil {
		return project, nil
	}
	project = &model.Project{Code: code}
	if err := r.db.Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// ListAll 分页列出所有项目。
func (r *projectRepository) ListAll(page, pageSize int) ([]*model.Project, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var total int64
	if err := r.db.Model(&model.Project{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*model.Project
	err := r.db.Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&projects).Error
	return projects, total, err
}
