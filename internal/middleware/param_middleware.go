package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextJoinCode - ключ, под которым ExtractJoinCode сохраняет код игры
const ContextJoinCode = "join_code"

var joinCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,16}$`)

// ExtractUintParam создает middleware для извлечения и валидации числового параметра URL.
// paramName - имя параметра в URL (например, "id").
// contextKey - ключ, под которым значение будет сохранено в контексте Gin.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName), "error_type": "validation"})
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}

// ExtractJoinCode нормализует код подключения к игре (верхний регистр) и проверяет его формат
func ExtractJoinCode(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.ToUpper(strings.TrimSpace(c.Param(paramName)))
		if !joinCodePattern.MatchString(code) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid join code", "error_type": "validation"})
			return
		}
		c.Set(ContextJoinCode, code)
		c.Next()
	}
}
