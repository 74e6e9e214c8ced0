package handler

import (
	"net/http"

	"doc-qa-go/internal/service"
	"doc-qa-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DataHandler 结构体定义了文档上传相关的处理器。
type DataHandler struct {
	dataService service.DataService
}

// NewDataHandler 创建一个新的 DataHandler 实例。
func NewDataHandler(dataService service.DataService) *DataHandler {
	return &DataHandler{dataService: dataService}
}

// UploadDocument 处理文档上传请求：文件进入对象存储，处理任务异步执行。
func (h *DataHandler) UploadDocument(c *gin.Context) {
	projectCode := c.Param("project_code")
	log.Infof("[DataHandler] 收到文档上传请求, project: %s", projectCode)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("[DataHandler] 上传请求缺少文件, project: %s, error: %v", projectCode, err)
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "缺少上传文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[DataHandler] 打开上传文件失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "读取上传文件失败"})
		return
	}
	defer file.Close()

	objectName, err := h.dataService.UploadDocument(c.Request.Context(), projectCode, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		log.Errorf("[DataHandler] 文档上传失败, project: %s, file: %s, error: %v", projectCode, fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "文档上传失败"})
		return
	}

	log.Infof("[DataHandler] 文档上传成功, project: %s, object: %s", projectCode, objectName)
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"object_name": objectName,
			"file_name":   fileHeader.Filename,
		},
		"message": "success",
	})
}
