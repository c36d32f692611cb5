// Package main implements the shopsync command, a terminal storefront client.
// It hydrates the product catalog through the session cache, follows real-time
// product events, and turns lines read from stdin into debounced searches.
//
// Package main 实现shopsync命令，一个终端店面客户端。
// 它通过会话缓存加载商品目录，跟随实时商品事件，并将从stdin读取的行转换为防抖搜索。
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yourusername/shopsync/configs"
	"github.com/yourusername/shopsync/internal/logging"
)

const usage = `Type to search. Commands:
  :more     load the next page
  :list     show the loaded products
  :refresh  drop the cache and refetch
  :mine     show the products of the signed-in seller
  :next :prev :select :esc   navigate suggestions
  :stats    show counters
  :quit     exit
`

// main is the entry point of the shopsync command.
// It loads the configuration, builds the components and runs until
// interrupted or the input ends.
//
// main 是shopsync命令的入口点。
// 它加载配置，构建组件，并运行直到被中断或输入结束。
func main() {
	// Parse command line flags
	// 解析命令行参数
	configFile := flag.String("config", "", "Path to a YAML or JSON configuration file")
	envFile := flag.String("env", ".env", "Path to a .env file, ignored when missing")
	flag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "shopsync: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	// Load .env so that SHOPSYNC_* variables can override the configuration file
	// 加载.env，使SHOPSYNC_*变量可以覆盖配置文件
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// Load configuration
	// 加载配置
	var (
		cfg *configs.Config
		vc  *configs.ViperConfig
		err error
	)
	if configFile != "" {
		vc, err = configs.NewViperConfig(configFile)
		if err != nil {
			return err
		}
		cfg = vc.Get()
	} else {
		cfg = configs.DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger.Logger, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	// Apply configuration changes while running
	// 运行期间应用配置变更
	if vc != nil {
		vc.SetLogger(logger.Logger)
		vc.Subscribe(func(next *configs.Config) {
			if err := logger.SetLevel(next.Log.Level); err != nil {
				logger.Warn("log level not applied", "error", err)
			}
			a.reconfigure(next)
		})
		if cfg.Extensions.HotReload.Enable {
			vc.EnableHotReload()
		}
	}

	fmt.Fprint(os.Stdout, usage)
	return a.run(ctx, readLines(os.Stdin))
}

// readLines forwards the lines of the input until it ends.
//
// readLines 转发输入中的每一行，直到输入结束。
func readLines(f *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
