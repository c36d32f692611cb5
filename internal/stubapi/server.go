// Package stubapi serves an in-memory implementation of the remote product API
// and its real-time channel. It backs the client tests and the mockapi command.
//
// Package stubapi 提供远程商品API及其实时通道的内存实现，
// 供客户端测试和mockapi命令使用。
package stubapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shopsync/pkg/model"
)

// Route names as counted by Requests.
const (
	RoutePage         = "GET /products/page"
	RouteList         = "GET /products"
	RouteGet          = "GET /products/:id"
	RouteOwner        = "GET /products/owner/products"
	RouteSearch       = "GET /products/search"
	RouteAutocomplete = "GET /products/autocomplete"
	RouteCreate       = "POST /products"
	RouteUpdate       = "PUT /products/:id"
	RouteDelete       = "DELETE /products/:id"
	RouteSocket       = "GET /socket"
)

// Server is the stub product API.
//
// Server 是商品API的桩实现。
type Server struct {
	catalog *Catalog
	hub     *Hub
	logger  *slog.Logger
	router  *gin.Engine

	mu       sync.Mutex
	sessions map[string]model.Session
	requests map[string]int
	failures map[string]failure
	latency  time.Duration
}

type failure struct {
	status  int
	message string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCatalog serves an existing catalog.
func WithCatalog(catalog *Catalog) Option {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithSession registers a session whose token is accepted by the server.
func WithSession(session model.Session) Option {
	return func(s *Server) {
		s.sessions[session.Token] = session
	}
}

// WithLatency delays every response, to make in-flight states observable.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

// New creates a stub server.
//
// New 创建一个桩服务器。
//
// Parameters:
//   - options: Optional configuration
//
// Returns:
//   - *Server: A server ready to be mounted with Handler
func New(options ...Option) *Server {
	s := &Server{
		catalog:  NewCatalog(),
		logger:   slog.Default(),
		sessions: make(map[string]model.Session),
		requests: make(map[string]int),
		failures: make(map[string]failure),
	}
	for _, option := range options {
		option(s)
	}
	s.hub = NewHub(s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger), s.recordRequests())

	h := &productHandler{catalog: s.catalog, hub: s.hub, logger: s.logger}

	router.GET("/socket", s.hub.ServeWS)

	products := router.Group("/products")
	products.GET("", h.listAll)
	products.GET("/page", h.listPage)
	products.GET("/search", h.search)
	products.GET("/autocomplete", h.autocomplete)
	products.GET("/:id", h.get)

	authed := products.Group("", s.requireSession())
	authed.GET("/owner/products", h.listOwner)
	authed.POST("", h.create)
	authed.PUT("/:id", h.update)
	authed.DELETE("/:id", h.remove)

	return router
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the gin engine, so that commands can mount extra routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Catalog returns the product catalog.
func (s *Server) Catalog() *Catalog {
	return s.catalog
}

// Hub returns the real-time broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// AddSession registers a session token.
func (s *Server) AddSession(session model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
}

// FailNext makes the next request to route fail with status and message.
//
// FailNext 使下一次对route的请求以status和message失败。
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Requests returns the number of requests received on route.
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// TotalRequests returns the number of REST requests received.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for route, n := range s.requests {
		if route != RouteSocket {
			total += n
		}
	}
	return total
}

// ResetRequests clears the request counters.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = make(map[string]int)
}
