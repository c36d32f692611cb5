package productsync

import (
	"github.com/yourusername/shopsync/pkg/model"
)

// Status is the state of one fetch machine: idle → loading → {idle, error}.
//
// Status 表示一个获取状态机的状态：idle → loading → {idle, error}。
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// State is the in-memory state owned by a Controller.
//
// State 是Controller持有的内存状态。
type State struct {
	// Products is the merged product list, page 1 first
	// Products 是合并后的商品列表，第一页在前
	Products []model.Product

	// Page is the last page merged into Products, 0 before the first fetch
	// Page 是最后合并到Products的页码，首次获取前为0
	Page int

	// HasMore reports whether the server has another page
	// HasMore 表示服务器是否还有下一页
	HasMore bool

	// OwnerProducts is the seller's own product list
	// OwnerProducts 是卖家自己的商品列表
	OwnerProducts []model.Product

	// Fetch is the page-1 fetch machine, More the load-more machine
	// Fetch 是第一页获取状态机，More 是加载更多状态机
	Fetch Status
	More  Status

	// Error is the message of the last failure, empty after a success
	// Error 是最近一次失败的消息，成功后为空
	Error string

	// Search is the state of the search box
	// Search 是搜索框的状态
	Search model.SearchState
}

// Loading reports whether a page-1 fetch is in flight.
func (s State) Loading() bool {
	return s.Fetch == StatusLoading
}

// LoadingMore reports whether a load-more fetch is in flight.
func (s State) LoadingMore() bool {
	return s.More == StatusLoading
}

// Busy reports whether either fetch is in flight.
func (s State) Busy() bool {
	return s.Loading() || s.LoadingMore()
}

// clone returns a copy that shares no slices with s.
func (s State) clone() State {
	out := s
	out.Products = cloneProducts(s.Products)
	out.OwnerProducts = cloneProducts(s.OwnerProducts)
	out.Search = s.Search.Clone()
	return out
}

// EventType tags the events applied by Reduce.
//
// EventType 标记Reduce处理的事件类型。
type EventType string

const (
	EventFetched       EventType = "fetched"
	EventAppended      EventType = "appended"
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventDeleted       EventType = "deleted"
	EventOwnerFetched  EventType = "ownerFetched"
	EventStarted       EventType = "started"
	EventFailed        EventType = "failed"
	EventSettled       EventType = "settled"
	EventSearched      EventType = "searched"
	EventSearchCleared EventType = "searchCleared"
)

// Scope selects the fetch machine an EventStarted or EventFailed applies to.
type Scope int

const (
	// ScopePage is the page-1 fetch
	ScopePage Scope = iota
	// ScopeMore is the load-more fetch
	ScopeMore
	// ScopeOther records an error without touching either machine
	ScopeOther
)

// Event is a tagged state change.
//
// Event 是带标签的状态变更。
type Event struct {
	Type     EventType
	Products []model.Product
	Product  model.Product
	ID       string
	Page     int
	HasMore  bool
	Scope    Scope
	Message  string
	Search   model.SearchState
}

// Fetched replaces the list with page 1 (or a cached snapshot covering page pages).
func Fetched(products []model.Product, page int, hasMore bool) Event {
	return Event{Type: EventFetched, Products: products, Page: page, HasMore: hasMore}
}

// Appended merges page into the list.
func Appended(page int, products []model.Product, hasMore bool) Event {
	return Event{Type: EventAppended, Products: products, Page: page, HasMore: hasMore}
}

// Created adds a product pushed by the server.
func Created(p model.Product) Event {
	return Event{Type: EventCreated, Product: p}
}

// Updated replaces a product pushed by the server.
func Updated(p model.Product) Event {
	return Event{Type: EventUpdated, Product: p}
}

// Deleted removes a product.
func Deleted(id string) Event {
	return Event{Type: EventDeleted, ID: id}
}

// OwnerFetched replaces the owner list.
func OwnerFetched(products []model.Product) Event {
	return Event{Type: EventOwnerFetched, Products: products}
}

// Started marks a fetch as in flight.
func Started(scope Scope) Event {
	return Event{Type: EventStarted, Scope: scope}
}

// Failed records a failure of scope.
func Failed(scope Scope, message string) Event {
	return Event{Type: EventFailed, Scope: scope, Message: message}
}

// Settled returns the fetch machine of scope to idle without touching the list.
// Used when the response of a fetch is dropped.
func Settled(scope Scope) Event {
	return Event{Type: EventSettled, Scope: scope}
}

// Searched stores a search result.
func Searched(search model.SearchState) Event {
	return Event{Type: EventSearched, Search: search}
}

// SearchCleared resets the search box.
func SearchCleared() Event {
	return Event{Type: EventSearchCleared}
}

// Reduce applies ev to s and returns the new state. s is never mutated.
// Events are applied in arrival order and the last write wins.
//
// Reduce 将ev应用到s并返回新状态，不会修改s。
// 事件按到达顺序应用，后写入者生效。
func Reduce(s State, ev Event) State {
	next := s
	switch ev.Type {
	case EventFetched:
		next.Products = cloneProducts(ev.Products)
		next.Page = ev.Page
		next.HasMore = ev.HasMore
		next.Fetch = StatusIdle
		next.Error = ""

	case EventAppended:
		next.Products = MergeUnique(s.Products, ev.Products)
		next.Page = ev.Page
		next.HasMore = ev.HasMore
		next.More = StatusIdle
		next.Error = ""

	case EventCreated:
		if indexOf(s.Products, ev.Product.ID) < 0 {
			next.Products = append([]model.Product{ev.Product}, s.Products...)
		}

	case EventUpdated:
		next.Products = replace(s.Products, ev.Product)
		next.OwnerProducts = replace(s.OwnerProducts, ev.Product)

	case EventDeleted:
		next.Products = remove(s.Products, ev.ID)
		next.OwnerProducts = remove(s.OwnerProducts, ev.ID)

	case EventOwnerFetched:
		next.OwnerProducts = cloneProducts(ev.Products)

	case EventStarted:
		switch ev.Scope {
		case ScopePage:
			next.Fetch = StatusLoading
		case ScopeMore:
			next.More = StatusLoading
		}

	case EventFailed:
		switch ev.Scope {
		case ScopePage:
			next.Fetch = StatusError
		case ScopeMore:
			next.More = StatusError
		}
		next.Error = ev.Message

	case EventSettled:
		switch ev.Scope {
		case ScopePage:
			next.Fetch = StatusIdle
		case ScopeMore:
			next.More = StatusIdle
		}

	case EventSearched:
		next.Search = ev.Search.Clone()

	case EventSearchCleared:
		next.Search = model.SearchState{}
	}
	return next
}

// MergeUnique appends the products of next that are not already in current.
// The earlier copy of a duplicate id keeps its position.
//
// MergeUnique 追加next中尚未出现在current里的商品，重复ID保留先出现的副本及其位置。
func MergeUnique(current, next []model.Product) []model.Product {
	seen := make(map[string]struct{}, len(current)+len(next))
	out := make([]model.Product, 0, len(current)+len(next))
	for _, list := range [][]model.Product{current, next} {
		for _, p := range list {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func replace(products []model.Product, p model.Product) []model.Product {
	i := indexOf(products, p.ID)
	if i < 0 {
		return products
	}
	out := cloneProducts(products)
	out[i] = p
	return out
}

func remove(products []model.Product, id string) []model.Product {
	if indexOf(products, id) < 0 {
		return products
	}
	out := make([]model.Product, 0, len(products)-1)
	for _, p := range products {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(products []model.Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneProducts(products []model.Product) []model.Product {
	if products == nil {
		return nil
	}
	out := make([]model.Product, len(products))
	copy(out, products)
	return out
}
