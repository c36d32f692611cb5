package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/shopsync/configs"
	"github.com/yourusername/shopsync/internal/metrics"
	"github.com/yourusername/shopsync/pkg/api"
	"github.com/yourusername/shopsync/pkg/cache"
	"github.com/yourusername/shopsync/pkg/codec"
	"github.com/yourusername/shopsync/pkg/model"
	"github.com/yourusername/shopsync/pkg/productsync"
	"github.com/yourusername/shopsync/pkg/realtime"
	"github.com/yourusername/shopsync/pkg/search"
)

// app wires the storefront components of one session.
//
// app 组装一个会话的店面组件。
type app struct {
	cfg     *configs.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	store   *cache.Store
	client  *api.Client
	ctrl    *productsync.Controller
	channel *realtime.Channel
	box     *search.Debouncer

	detach  func()
	closers []func() error

	sessionMu sync.Mutex
	session   model.Session

	outMu sync.Mutex
	out   io.Writer
}

// newApp builds every component from cfg. Components that need a context to
// run, such as the real-time channel, are started by run.
//
// newApp 根据cfg构建所有组件。需要上下文运行的组件（例如实时通道）由run启动。
func newApp(ctx context.Context, cfg *configs.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		out:     out,
	}

	storage, err := a.newStorage(ctx)
	if err != nil {
		return nil, err
	}

	payloadCodec, err := codec.GetCodec(cfg.Cache.Codec)
	if err != nil {
		a.close()
		return nil, err
	}

	a.store, err = cache.New(storage,
		cache.WithName(cfg.Cache.Name),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithCodec(payloadCodec),
		cache.WithLogger(logger),
		cache.WithMetrics(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	a.client, err = api.NewClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		api.WithPageSize(cfg.API.PageSize),
		api.WithToken(cfg.API.Token),
		api.WithLogger(logger),
		api.WithMetrics(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	a.session = sessionOf(cfg)
	a.ctrl, err = productsync.New(a.client, a.store,
		productsync.WithSession(a.session),
		productsync.WithLogger(logger),
		productsync.WithPageSize(cfg.API.PageSize),
		productsync.WithNotifier(productsync.LogNotifier{Logger: logger}),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.Realtime.Enable {
		socketURL := cfg.Realtime.URL
		if socketURL == "" {
			if socketURL, err = realtime.SocketURL(cfg.API.BaseURL); err != nil {
				a.close()
				return nil, err
			}
		}
		a.channel, err = realtime.NewChannel(socketURL,
			realtime.WithToken(cfg.API.Token),
			realtime.WithBackoff(cfg.Realtime.MinBackoff, cfg.Realtime.MaxBackoff),
			realtime.WithLogger(logger),
			realtime.WithMetrics(a.metrics),
		)
		if err != nil {
			a.close()
			return nil, err
		}
		a.detach = a.ctrl.Attach(ctx, a.channel)
	}

	opts := model.SearchOptions{Fuzzy: cfg.Search.Fuzzy}
	if cfg.Search.Category != "" {
		category := cfg.Search.Category
		opts.Category = &category
	}
	a.box, err = search.New(a.client,
		func(query string) {
			a.ctrl.Search(ctx, query, opts)
			a.printSearch(a.ctrl.SearchState())
		},
		search.WithDelays(cfg.Search.Delay, cfg.Search.AutocompleteDelay),
		search.WithMinLength(cfg.Search.MinLength),
		search.WithLogger(logger),
		search.WithOnClear(func() { a.ctrl.ClearSearch(ctx) }),
		search.WithOnSuggestions(a.printSuggestions),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *app) newStorage(ctx context.Context) (cache.Storage, error) {
	switch a.cfg.Cache.Engine {
	case "redis":
		storage, err := cache.NewRedisStorage(ctx, cache.RedisOptions{
			URL:     a.cfg.Cache.Redis.URL,
			Prefix:  a.cfg.Cache.Redis.Prefix,
			Session: a.cfg.Cache.Redis.Session,
			Expiry:  a.cfg.Cache.Redis.Expiry,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, storage.Close)
		return storage, nil
	case "", "memory":
		return cache.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown cache engine %q", a.cfg.Cache.Engine)
	}
}

// start loads the first page, and the seller's products when the session may manage them.
//
// start 加载第一页；会话可以管理商品时同时加载卖家商品。
func (a *app) start(ctx context.Context) {
	a.ctrl.FetchFirstPage(ctx)
	a.ctrl.FetchOwnerProducts(ctx)
	a.printProducts(a.ctrl.Snapshot())
}

// run starts the background components and feeds input lines to handle until
// ctx is cancelled, the input ends or :quit is read.
//
// run 启动后台组件，并将输入行交给handle处理，直到ctx被取消、输入结束或读到:quit。
func (a *app) run(ctx context.Context, lines <-chan string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if a.channel != nil {
		g.Go(func() error {
			if err := a.channel.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if a.cfg.Metrics.Enable {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}

	a.start(gctx)

	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || !a.handle(gctx, line) {
					return nil
				}
			}
		}
	})

	return g.Wait()
}

// handle executes one input line. Lines starting with ':' are commands, anything
// else is typed into the search box. It returns false on :quit.
//
// handle 执行一行输入。以':'开头的行是命令，其余内容输入到搜索框。读到:quit时返回false。
func (a *app) handle(ctx context.Context, line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, ":") {
		a.box.SetQuery(line)
		return true
	}

	switch strings.TrimSpace(line) {
	case ":quit", ":q":
		return false
	case ":more":
		a.ctrl.LoadMore(ctx)
		a.printProducts(a.ctrl.Snapshot())
	case ":list":
		a.printProducts(a.ctrl.Snapshot())
	case ":refresh":
		a.ctrl.Refresh(ctx)
		a.printProducts(a.ctrl.Snapshot())
	case ":mine":
		a.ctrl.FetchOwnerProducts(ctx)
		a.printf("my products (%d)\n", len(a.ctrl.Snapshot().OwnerProducts))
		a.printList(a.ctrl.Snapshot().OwnerProducts)
	case ":next":
		a.box.Next()
		a.printSuggestions(a.box.Suggestions())
	case ":prev":
		a.box.Previous()
		a.printSuggestions(a.box.Suggestions())
	case ":select":
		if !a.box.Select() {
			a.printf("nothing to search\n")
		}
	case ":esc":
		a.box.Dismiss()
	case ":stats":
		a.printf("%s\n", a.metrics.GetSnapshot().String())
	default:
		a.printf("unknown command %q\n", line)
	}
	return true
}

func (a *app) serveMetrics(ctx context.Context) error {
	exporter := metrics.NewPrometheusExporter(a.metrics, a.cfg.Cache.Name)
	exporter.SetPrefix(a.cfg.Metrics.Namespace)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(a.cfg.Metrics.Path, gin.WrapH(exporter))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Metrics.PrometheusPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	a.logger.Info("metrics endpoint listening", "addr", server.Addr, "path", a.cfg.Metrics.Path)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// reconfigure applies the settings that can change without a restart: the
// session credentials.
//
// reconfigure 应用无需重启即可变更的设置：会话凭据。
func (a *app) reconfigure(cfg *configs.Config) {
	session := sessionOf(cfg)

	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()
	if session == a.session {
		return
	}
	a.session = session
	a.client.SetToken(session.Token)
	a.ctrl.SetSession(session)
	a.logger.Info("session updated from configuration", "role", session.Role)
}

func sessionOf(cfg *configs.Config) model.Session {
	return model.Session{Token: cfg.API.Token, UserID: cfg.API.UserID, Role: cfg.API.Role}
}

func (a *app) close() {
	if a.box != nil {
		a.box.Close()
	}
	if a.detach != nil {
		a.detach()
	}
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func (a *app) printProducts(state productsync.State) {
	more := ""
	if state.HasMore {
		more = ", :more for the next page"
	}
	a.printf("products: %d loaded, page %d%s\n", len(state.Products), state.Page, more)
	a.printList(state.Products)
	if state.Error != "" {
		a.printf("error: %s\n", state.Error)
	}
}

func (a *app) printSearch(state model.SearchState) {
	switch {
	case state.Error != nil:
		a.printf("search %q failed: %s\n", state.Query, *state.Error)
	case state.Results == nil:
	default:
		a.printf("search %q: %d results\n", state.Query, len(state.Results))
		a.printList(state.Results)
	}
}

func (a *app) printSuggestions(suggestions []model.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	selected := a.box.Selected()
	for i, s := range suggestions {
		marker := " "
		if i == selected {
			marker = ">"
		}
		a.printf(" %s %s\n", marker, s.Label())
	}
}

func (a *app) printList(products []model.Product) {
	for i, p := range products {
		price := "-"
		if min, ok := p.MinPrice(); ok {
			price = min.StringFixed(2)
		}
		a.printf("%4d. %-32s %10s  stock %d\n", i+1, p.Name, price, p.TotalStock())
	}
}

func (a *app) printf(format string, args ...interface{}) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}
