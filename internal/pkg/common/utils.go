package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteError 寫入錯誤響應並中止後續處理，原始錯誤不會出現在響應中
func WriteError(c *gin.Context, err *CustomError) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"error": err.Response(),
	})
}
