// Package productsync keeps the storefront's product lists in sync with the
// remote API, the real-time channel and the session cache.
//
// All state changes go through Reduce, under one mutex, in the order they
// arrive. Network I/O never happens under the lock. A list fetch and a
// real-time event racing each other resolve last-write-wins.
//
// Package productsync 使店面的商品列表与远程API、实时通道和会话缓存保持同步。
// 所有状态变更都在同一个互斥锁下按到达顺序通过Reduce完成，网络I/O从不在锁内进行。
// 列表获取与实时事件之间的竞争按后写入者生效处理。
package productsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/shopsync/pkg/cache"
	shoperrors "github.com/yourusername/shopsync/pkg/errors"
	"github.com/yourusername/shopsync/pkg/loader"
	"github.com/yourusername/shopsync/pkg/model"
)

// ProductAPI is the part of the remote API the controller uses.
//
// ProductAPI 是控制器使用的远程API子集。
type ProductAPI interface {
	ListPage(ctx context.Context, page int) (model.Page, error)
	ListOwner(ctx context.Context) ([]model.Product, error)
	Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.Product, error)
	Create(ctx context.Context, input model.ProductInput) (model.Product, error)
	Update(ctx context.Context, id string, input model.ProductInput) (model.Product, error)
	Delete(ctx context.Context, id string) error
}

// EventSource delivers real-time product events.
//
// EventSource 投递实时商品事件。
type EventSource interface {
	OnProductCreated(fn func(model.Product)) func()
	OnProductUpdated(fn func(model.Product)) func()
	OnProductDeleted(fn func(id string)) func()
}

// Controller is the product synchronization controller.
//
// Controller 是商品同步控制器。
type Controller struct {
	api      ProductAPI
	store    *cache.Store
	owners   *loader.SnapshotLoader[[]model.Product]
	notifier Notifier
	logger   *slog.Logger
	pageSize int

	mu        sync.Mutex
	state     State
	session   model.Session
	searchGen uint64
	listGen   uint64
	observers map[uint64]func(State)
	nextObs   uint64
}

// New creates a controller and hydrates the persisted search state.
//
// New 创建一个控制器，并恢复持久化的搜索状态。
//
// Parameters:
//   - api: The remote product API
//   - store: The session cache store
//   - options: Optional configuration
//
// Returns:
//   - *Controller: A new controller
//   - error: An error if api or store is nil
func New(api ProductAPI, store *cache.Store, options ...Option) (*Controller, error) {
	if api == nil || store == nil {
		return nil, fmt.Errorf("productsync: api and store are required")
	}

	c := &Controller{
		api:       api,
		store:     store,
		logger:    slog.Default(),
		pageSize:  DefaultPageSize,
		state:     State{Fetch: StatusIdle, More: StatusIdle},
		observers: make(map[uint64]func(State)),
	}
	for _, option := range options {
		option(c)
	}
	c.logger = c.logger.With("component", "productsync")
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}

	c.owners = loader.NewSnapshotLoader[[]model.Product](store, loader.LoaderFunc[[]model.Product](
		func(ctx context.Context, _ string) ([]model.Product, error) {
			return api.ListOwner(ctx)
		}))
	c.owners.Logger = c.logger

	var persisted model.SearchState
	if store.Get(context.Background(), cache.KeySearch, &persisted) {
		c.state.Search = persisted
	}
	return c, nil
}

// SetSession replaces the active session. When the session changes, the owner
// list of the previous session is dropped from memory and from the cache.
//
// SetSession 替换当前会话。会话变化时，从内存和缓存中丢弃上一个会话的卖家列表。
func (c *Controller) SetSession(session model.Session) {
	c.mu.Lock()
	if session == c.session {
		c.mu.Unlock()
		return
	}
	c.session = session
	state, observers := c.applyLocked(OwnerFetched(nil))
	c.mu.Unlock()
	c.publish(state, observers)

	c.store.Invalidate(context.Background(), cache.KeyOwnerProducts)
	c.logger.Debug("session changed, owner list dropped", "role", session.Role)
}

// Snapshot returns a copy of the current state.
//
// Snapshot 返回当前状态的副本。
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SearchState returns the current search state.
func (c *Controller) SearchState() model.SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Search.Clone()
}

// Subscribe registers fn to be called with the new state after every applied
// event. It returns a function that removes the observer.
//
// Subscribe 注册fn，在每个事件应用后以新状态调用。返回取消注册的函数。
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// FetchFirstPage hydrates the list from a fresh cache snapshot, or fetches page 1
// and replaces the list. It is a no-op while any fetch is in flight.
// Failures are recorded in State.Error and notified, not returned.
//
// FetchFirstPage 从有效的缓存快照恢复列表，或获取第一页并整体替换列表。
// 任一获取进行中时不执行任何操作。失败记录在State.Error中并发出通知，不会返回。
func (c *Controller) FetchFirstPage(ctx context.Context) {
	if !c.begin(ScopePage) {
		return
	}

	var cached []model.Product
	if c.store.Load(ctx, cache.KeyProducts, &cached) {
		cur, ok := c.loadCursor(ctx, len(cached))
		c.replaceList(cached, cur.Page, cur.HasMore)
		c.logger.Debug("hydrated products from cache", "count", len(cached), "page", cur.Page, "cursor", ok)
		return
	}

	c.fetchFirstPage(ctx)
}

// LoadMore fetches the next page and merges it into the list, deduplicating by
// id. It is a no-op when the server reported no more pages or a fetch is in flight.
// The page cursor only advances on success.
//
// LoadMore 获取下一页并按ID去重合并到列表中。
// 服务器报告没有更多页或已有获取进行中时不执行任何操作。页码只在成功时前进。
func (c *Controller) LoadMore(ctx context.Context) {
	c.mu.Lock()
	if !c.state.HasMore || c.state.Busy() {
		c.mu.Unlock()
		return
	}
	next := c.state.Page + 1
	gen := c.listGen
	state, observers := c.applyLocked(Started(ScopeMore))
	c.mu.Unlock()
	c.publish(state, observers)

	page, err := c.api.ListPage(ctx, next)

	// 第一页在此期间被重新获取时丢弃该页
	c.mu.Lock()
	var ev Event
	switch {
	case gen != c.listGen:
		ev = Settled(ScopeMore)
	case err != nil:
		ev = Failed(ScopeMore, shoperrors.UserMessage(err))
	default:
		ev = Appended(next, page.Products, page.HasNext)
	}
	state, observers = c.applyLocked(ev)
	c.mu.Unlock()
	c.publish(state, observers)

	switch ev.Type {
	case EventSettled:
		c.logger.Debug("dropping page fetched for a replaced list", "page", next)
	case EventFailed:
		c.logger.Warn("failed to load more products", "error", err)
		c.notifier.Error("failed to load more products: " + ev.Message)
	default:
		c.persistProducts(ctx)
	}
}

// Refresh drops the cached lists and refetches page 1 and the owner list.
//
// Refresh 丢弃缓存的列表并重新获取第一页和卖家列表。
func (c *Controller) Refresh(ctx context.Context) {
	c.store.Invalidate(ctx, cache.KeyProducts, cache.KeyProductsCursor, cache.KeyOwnerProducts)
	c.FetchFirstPage(ctx)
	c.refreshOwner(ctx)
}

// FetchOwnerProducts loads the seller's own products, from the cache when a fresh
// snapshot exists. It does nothing for sessions that cannot manage products.
//
// FetchOwnerProducts 加载卖家自己的商品，存在有效快照时从缓存读取。
// 对无权管理商品的会话不执行任何操作。
func (c *Controller) FetchOwnerProducts(ctx context.Context) {
	if !c.currentSession().CanManageProducts() {
		return
	}
	session := c.currentSession()
	products, _, err := c.owners.Load(ctx, cache.KeyOwnerProducts)
	if err != nil {
		c.fail(ScopeOther, "failed to load your products", err)
		return
	}
	c.applyOwner(ctx, session, products)
}

// CreateOne creates a product, then refetches page 1 and the owner list.
//
// CreateOne 创建商品，然后重新获取第一页和卖家列表。
func (c *Controller) CreateOne(ctx context.Context, input model.ProductInput) (model.Product, error) {
	if err := c.requireSession(); err != nil {
		return model.Product{}, err
	}
	p, err := c.api.Create(ctx, input)
	if err != nil {
		return model.Product{}, c.mutationFailed("failed to create product", err)
	}
	c.afterMutation(ctx, "Product created successfully")
	return p, nil
}

// UpdateOne updates a product, then refetches page 1 and the owner list.
//
// UpdateOne 更新商品，然后重新获取第一页和卖家列表。
func (c *Controller) UpdateOne(ctx context.Context, id string, input model.ProductInput) (model.Product, error) {
	if err := c.requireSession(); err != nil {
		return model.Product{}, err
	}
	p, err := c.api.Update(ctx, id, input)
	if err != nil {
		return model.Product{}, c.mutationFailed("failed to update product", err)
	}
	c.afterMutation(ctx, "Product updated successfully")
	return p, nil
}

// DeleteOne deletes a product, then refetches page 1 and the owner list.
//
// DeleteOne 删除商品，然后重新获取第一页和卖家列表。
func (c *Controller) DeleteOne(ctx context.Context, id string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if err := c.api.Delete(ctx, id); err != nil {
		return c.mutationFailed("failed to delete product", err)
	}
	c.afterMutation(ctx, "Product deleted successfully")
	return nil
}

// OnCreated merges a product pushed by the server. Applying the same event
// twice leaves a single copy.
//
// OnCreated 合并服务器推送的新商品。同一事件应用两次只保留一份。
func (c *Controller) OnCreated(ctx context.Context, p model.Product) {
	c.apply(Created(p))
	c.afterRealtime(ctx, c.currentSession().Owns(p))
}

// OnUpdated replaces a product pushed by the server.
//
// OnUpdated 替换服务器推送的已更新商品。
func (c *Controller) OnUpdated(ctx context.Context, p model.Product) {
	c.apply(Updated(p))
	c.afterRealtime(ctx, c.currentSession().Owns(p))
}

// OnDeleted removes a product deleted on the server.
//
// OnDeleted 移除服务器上已删除的商品。
func (c *Controller) OnDeleted(ctx context.Context, id string) {
	c.mu.Lock()
	owned := c.session.CanManageProducts() &&
		(c.session.Role == model.RoleAdmin || indexOf(c.state.OwnerProducts, id) >= 0)
	c.mu.Unlock()

	c.apply(Deleted(id))
	c.afterRealtime(ctx, owned)
}

// Attach subscribes the real-time handlers to src. Handlers run with ctx.
// The returned function detaches them.
//
// Attach 将实时处理器订阅到src，处理器使用ctx运行。返回的函数用于取消订阅。
func (c *Controller) Attach(ctx context.Context, src EventSource) func() {
	offs := []func(){
		src.OnProductCreated(func(p model.Product) { c.OnCreated(ctx, p) }),
		src.OnProductUpdated(func(p model.Product) { c.OnUpdated(ctx, p) }),
		src.OnProductDeleted(func(id string) { c.OnDeleted(ctx, id) }),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Search runs a product search and stores the result in memory and in the
// session cache. An empty query clears the search. When searches overlap only
// the latest one is applied; older responses are dropped.
// Failures go to SearchState.Error and a notification, not to the caller.
//
// Search 执行商品搜索，并将结果保存在内存和会话缓存中。空查询会清除搜索。
// 多个搜索重叠时只应用最新的一个，较早的响应被丢弃。
// 失败写入SearchState.Error并发出通知，不会返回给调用方。
func (c *Controller) Search(ctx context.Context, query string, opts model.SearchOptions) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		c.ClearSearch(ctx)
		return
	}

	c.mu.Lock()
	c.searchGen++
	gen := c.searchGen
	c.mu.Unlock()

	results, err := c.api.Search(ctx, trimmed, opts)

	search := model.SearchState{Query: query, Results: results, Options: opts}
	if err != nil {
		msg := shoperrors.UserMessage(err)
		search.Results = nil
		search.Error = &msg
	}

	c.mu.Lock()
	if gen != c.searchGen {
		c.mu.Unlock()
		c.logger.Debug("dropping stale search response", "query", query)
		return
	}
	state, observers := c.applyLocked(Searched(search))
	c.mu.Unlock()
	c.publish(state, observers)

	if err != nil {
		c.logger.Warn("search failed", "query", query, "error", err)
		c.notifier.Error(*search.Error)
	}
	if perr := c.store.Put(ctx, cache.KeySearch, search); perr != nil {
		c.logger.Warn("failed to persist search state", "error", perr)
	}
}

// ClearSearch resets the search box and forgets the persisted search state.
// A search still in flight is dropped when it returns.
//
// ClearSearch 重置搜索框并删除持久化的搜索状态。仍在进行中的搜索返回时会被丢弃。
func (c *Controller) ClearSearch(ctx context.Context) {
	c.mu.Lock()
	c.searchGen++
	state, observers := c.applyLocked(SearchCleared())
	c.mu.Unlock()
	c.publish(state, observers)

	c.store.Invalidate(ctx, cache.KeySearch)
}

// begin starts the fetch machine of scope unless a fetch is in flight.
func (c *Controller) begin(scope Scope) bool {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return false
	}
	state, observers := c.applyLocked(Started(scope))
	c.mu.Unlock()
	c.publish(state, observers)
	return true
}

// fetchFirstPage replaces the list with page 1 from the API.
func (c *Controller) fetchFirstPage(ctx context.Context) error {
	c.apply(Started(ScopePage))

	page, err := c.api.ListPage(ctx, 1)
	if err != nil {
		c.fail(ScopePage, "failed to load products", err)
		return err
	}
	c.replaceList(page.Products, 1, page.HasNext)
	c.persistProducts(ctx)
	return nil
}

// replaceList applies a wholesale replacement of the list. A load-more still in
// flight for the previous list is dropped when it returns.
func (c *Controller) replaceList(products []model.Product, page int, hasMore bool) {
	c.mu.Lock()
	c.listGen++
	state, observers := c.applyLocked(Fetched(products, page, hasMore))
	c.mu.Unlock()
	c.publish(state, observers)
}

// refreshOwner reloads the owner list from the API, bypassing the cache.
func (c *Controller) refreshOwner(ctx context.Context) error {
	session := c.currentSession()
	if !session.CanManageProducts() {
		return nil
	}
	products, err := c.owners.Refresh(ctx, cache.KeyOwnerProducts)
	if err != nil {
		c.fail(ScopeOther, "failed to load your products", err)
		return err
	}
	c.applyOwner(ctx, session, products)
	return nil
}

// applyOwner stores the owner list fetched for session. A list that arrives
// after the session changed belongs to someone else and is discarded, together
// with the snapshot the loader wrote for it.
func (c *Controller) applyOwner(ctx context.Context, session model.Session, products []model.Product) {
	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		c.store.Invalidate(ctx, cache.KeyOwnerProducts)
		c.logger.Debug("dropping owner list of a previous session")
		return
	}
	state, observers := c.applyLocked(OwnerFetched(products))
	c.mu.Unlock()
	c.publish(state, observers)
}

func (c *Controller) afterMutation(ctx context.Context, message string) {
	c.store.Invalidate(ctx, cache.KeyProducts, cache.KeyProductsCursor, cache.KeyOwnerProducts, cache.KeySearch)

	var g errgroup.Group
	g.Go(func() error { return c.fetchFirstPage(ctx) })
	g.Go(func() error { return c.refreshOwner(ctx) })
	if err := g.Wait(); err != nil {
		c.logger.Warn("refetch after mutation failed", "error", err)
	}

	c.notifier.Success(message)
}

func (c *Controller) afterRealtime(ctx context.Context, owned bool) {
	if !c.persistProducts(ctx) {
		c.store.Invalidate(ctx, cache.KeyProducts, cache.KeyProductsCursor)
	}
	c.store.Invalidate(ctx, cache.KeySearch)
	if owned {
		c.refreshOwner(ctx)
	}
}

func (c *Controller) requireSession() error {
	if c.currentSession().Authenticated() {
		return nil
	}
	c.apply(Failed(ScopeOther, shoperrors.UserMessage(shoperrors.ErrUnauthenticated)))
	c.notifier.Error(shoperrors.UserMessage(shoperrors.ErrUnauthenticated))
	return shoperrors.ErrUnauthenticated
}

func (c *Controller) mutationFailed(message string, err error) error {
	c.logger.Warn(message, "error", err)
	c.apply(Failed(ScopeOther, shoperrors.UserMessage(err)))
	c.notifier.Error(message + ": " + shoperrors.UserMessage(err))
	return err
}

func (c *Controller) fail(scope Scope, message string, err error) {
	c.logger.Warn(message, "error", err)
	c.apply(Failed(scope, shoperrors.UserMessage(err)))
	c.notifier.Error(message + ": " + shoperrors.UserMessage(err))
}

// cursor is the paging position saved next to the product snapshot.
type cursor struct {
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
}

// persistProducts snapshots the list and its cursor. Nothing is written before
// page 1 has been loaded, so a pushed event cannot leave a partial list in the cache.
func (c *Controller) persistProducts(ctx context.Context) bool {
	c.mu.Lock()
	if c.state.Page == 0 {
		c.mu.Unlock()
		return false
	}
	products := cloneProducts(c.state.Products)
	cur := cursor{Page: c.state.Page, HasMore: c.state.HasMore}
	c.mu.Unlock()

	if products == nil {
		products = []model.Product{}
	}
	if err := c.store.Save(ctx, cache.KeyProducts, products); err != nil {
		c.logger.Warn("failed to persist products", "error", err)
		return false
	}
	if err := c.store.Save(ctx, cache.KeyProductsCursor, cur); err != nil {
		c.logger.Warn("failed to persist product cursor", "error", err)
	}
	return true
}

// loadCursor reads the cursor saved with a snapshot of n products. Without one
// the cursor covers the pages n products span and assumes the server has more,
// so the next LoadMore asks it.
func (c *Controller) loadCursor(ctx context.Context, n int) (cursor, bool) {
	var cur cursor
	if c.store.Load(ctx, cache.KeyProductsCursor, &cur) && cur.Page > 0 {
		return cur, true
	}
	if n == 0 {
		return cursor{Page: 1}, false
	}
	return cursor{Page: (n + c.pageSize - 1) / c.pageSize, HasMore: true}, false
}

func (c *Controller) currentSession() model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) apply(ev Event) {
	c.mu.Lock()
	state, observers := c.applyLocked(ev)
	c.mu.Unlock()
	c.publish(state, observers)
}

func (c *Controller) applyLocked(ev Event) (State, []func(State)) {
	c.state = Reduce(c.state, ev)
	if len(c.observers) == 0 {
		return State{}, nil
	}
	observers := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	return c.state.clone(), observers
}

func (c *Controller) publish(state State, observers []func(State)) {
	for _, fn := range observers {
		fn(state)
	}
}
