// Package main runs the stub product API for local development.
// It serves the paginated catalog, search, autocomplete, seller mutations and the
// real-time websocket from an in-memory catalog seeded with sample products.
//
// Package main 运行用于本地开发的桩商品API。
// 它基于预置示例商品的内存目录，提供分页目录、搜索、自动补全、卖家操作和实时websocket。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yourusername/shopsync/configs"
	"github.com/yourusername/shopsync/internal/logging"
	"github.com/yourusername/shopsync/internal/stubapi"
	"github.com/yourusername/shopsync/pkg/model"
)

// main is the entry point of the stub API.
// It parses flags, seeds the catalog, registers the demo sessions and serves
// until interrupted.
//
// main 是桩API的入口点。
// 它解析命令行参数，预置目录，注册演示会话，并持续服务直到被中断。
func main() {
	// Load .env before flags so that the environment can provide defaults
	// 在解析参数前加载.env，使环境变量可以提供默认值
	_ = godotenv.Load()

	// Parse command line flags
	// 解析命令行参数
	addr := flag.String("addr", envOr("MOCKAPI_ADDR", ":8080"), "HTTP listen address")
	count := flag.Int("products", 40, "Number of sample products to seed")
	latency := flag.Duration("latency", 0, "Artificial latency added to every request")
	sellerToken := flag.String("seller-token", envOr("MOCKAPI_SELLER_TOKEN", "seller-token"), "Bearer token of the demo seller")
	adminToken := flag.String("admin-token", envOr("MOCKAPI_ADMIN_TOKEN", "admin-token"), "Bearer token of the demo admin")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	flag.Parse()

	logger, err := logging.New(configs.LogConfig{Level: *logLevel, Format: *logFormat, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging flags: %v\n", err)
		os.Exit(2)
	}
	defer logger.Close()

	gin.SetMode(gin.ReleaseMode)

	// Seed the catalog and register the demo sessions
	// 预置目录并注册演示会话
	seller := model.Session{Token: *sellerToken, UserID: "seller-1", Role: model.RoleOwner}
	admin := model.Session{Token: *adminToken, UserID: "admin-1", Role: model.RoleAdmin}

	catalog := stubapi.NewCatalog()
	catalog.Seed(stubapi.SampleProducts(*count, seller.UserID, "seller-2")...)

	server := stubapi.New(
		stubapi.WithLogger(logger.Logger),
		stubapi.WithCatalog(catalog),
		stubapi.WithSession(seller),
		stubapi.WithSession(admin),
		stubapi.WithLatency(*latency),
	)

	// Liveness endpoint
	// 存活检查端点
	server.Router().GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"products": len(server.Catalog().List()),
			"clients":  server.Hub().Clients(),
			"requests": server.TotalRequests(),
		})
	})

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("stub product API listening", "addr", *addr, "products", *count)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	server.Hub().Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}

// envOr returns the environment variable key, or fallback when it is unset.
//
// envOr 返回环境变量key的值，未设置时返回fallback。
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
