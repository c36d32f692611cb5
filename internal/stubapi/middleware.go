package stubapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yourusername/shopsync/pkg/model"
)

const (
	requestIDHeader = "X-Request-ID"
	sessionKey      = "session"
)

// RequestLogger 返回记录请求信息的中间件
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.Writer.Header().Get(requestIDHeader),
		)
	}
}

// RequestID 回显客户端的X-Request-ID，缺失时生成一个新的
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// recordRequests 统计请求次数并按需注入一次性故障
func (s *Server) recordRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()

		s.mu.Lock()
		s.requests[route]++
		fail, injected := s.failures[route]
		delete(s.failures, route)
		latency := s.latency
		s.mu.Unlock()

		if latency > 0 {
			time.Sleep(latency)
		}
		if injected {
			c.AbortWithStatusJSON(fail.status, gin.H{"message": fail.message})
			return
		}
		c.Next()
	}
}

// requireSession 校验Bearer令牌并把会话放入上下文
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		s.mu.Lock()
		session, ok := s.sessions[token]
		s.mu.Unlock()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		if !session.CanManageProducts() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "seller account required"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) model.Session {
	session, _ := c.Get(sessionKey)
	s, _ := session.(model.Session)
	return s
}
