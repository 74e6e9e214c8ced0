// Package handler 包含了所有 Gin 的 HTTP 处理器。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ProjectHandler 结构体定义了项目管理相关的处理器。
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler 创建一个新的 ProjectHandler 实例。
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type createProjectRequest struct {
	Code string `json:"code" binding:"required"`
}

// CreateProject 处理创建项目的请求。
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的请求参数"})
		return
	}

	project, err := h.projectService.CreateProject(req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProjectCode) {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "项目编码只允许字母、数字、下划线和连字符"})
			return
		}
		log.Errorf("[ProjectHandler] 创建项目失败, code: %s, error: %v", req.Code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "创建项目失败"})
		return
	}

	log.Infof("[ProjectHandler] 项目创建成功, code: %s, id: %d", project.Code, project.ID)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": project, "message": "success"})
}

// GetProject 处理按编码查询项目的请求。
func (h *ProjectHandler) GetProject(c *gin.Context) {
	code := c.Param("code")

	project, err := h.projectService.GetProject(code)
	if err != nil {
		log.Errorf("[ProjectHandler] 查询项目失败, code: %s, error: %v", code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询项目失败"})
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "项目不存在"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": project, "message": "success"})
}

// ListProjects 处理分页列出项目的请求。
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize <= 0 {
		pageSize = 10
	}

	projects, total, err := h.projectService.ListProjects(page, pageSize)
	if err != nil {
		log.Errorf("[ProjectHandler] 列出项目失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "列出项目失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"projects": projects,
			"total":    total,
			"page":     page,
		},
		"message": "success",
	})
}
