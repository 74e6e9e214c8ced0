package service

import (
	"errors"
	"regexp"

	"doc-qa-go/internal/model"
	"doc-qa-go/internal/repository"
)

// ErrInvalidProjectCode 表示项目编码不符合命名规则。
var ErrInvalidProjectCode = errors.New("invalid project code")

// 项目编码只允许字母、数字、下划线和连字符。
var projectCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ProjectService 定义了项目管理的业务接口。
type ProjectService interface {
	CreateProject(code string) (*model.Project, error)
	GetProject(code string) (*model.Project, error)
	ListProjects(page, pageSize int) ([]*model.Project, int64, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService 创建一个新的 ProjectService 实例。
func NewProjectService(projectRepo repository.ProjectRepository) ProjectService {
	return &projectService{projectRepo: projectRepo}
}

// CreateProject 按编码创建（或返回既有）项目。
func (s *projectService) CreateProject(code string) (*model.Project, error) {
	if !projectCodePattern.MatchString(code) {
		return nil, ErrInvalidProjectCode
	}
	return s.projectRepo.GetOrCreateByCode(code)
}

// GetProject 按编码查找项目，不存在时返回 nil。
func (s *projectService) GetProject(code string) (*model.Project, error) {
	return s.projectRepo.GetByCode(code)
}

// ListProjects 分页列出所有项目。
func (s *projectService) ListProjects(page, pageSize int) ([]*model.Project, int64, error) {
	return s.projectRepo.ListAll(page, pageSize)
}
