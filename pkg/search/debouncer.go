// Package search turns raw keystrokes of the search box into two independently
// timed calls: a debounced search and a faster autocomplete.
//
// Package search 将搜索框的原始按键转换为两个独立计时的调用：
// 防抖后的搜索，以及更快触发的自动补全。
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/yourusername/shopsync/internal/timer"
	"github.com/yourusername/shopsync/pkg/clock"
	"github.com/yourusername/shopsync/pkg/model"
)

// Default timings.
//
// 默认时间参数。
const (
	DefaultSearchDelay       = 500 * time.Millisecond
	DefaultAutocompleteDelay = 200 * time.Millisecond
	DefaultMinLength         = 2
)

// Suggester fetches autocomplete suggestions.
//
// Suggester 获取自动补全建议。
type Suggester interface {
	Autocomplete(ctx context.Context, query string) ([]model.Suggestion, error)
}

// Config holds the debouncer settings.
//
// Config 保存防抖器的配置。
type Config struct {
	// SearchDelay is the inactivity before the search runs
	// SearchDelay 是触发搜索前的静默时间
	SearchDelay time.Duration

	// AutocompleteDelay is the inactivity before suggestions are fetched
	// AutocompleteDelay 是获取建议前的静默时间
	AutocompleteDelay time.Duration

	// MinLength is the trimmed query length from which suggestions are fetched
	// MinLength 是开始获取建议的最小查询长度（去除首尾空白后）
	MinLength int

	Clock  clock.Clock
	Logger *slog.Logger

	// OnClear runs synchronously when the query becomes empty
	// OnClear 在查询变为空时同步执行
	OnClear func()

	// OnSuggestions runs whenever the suggestion list changes
	// OnSuggestions 在建议列表变化时执行
	OnSuggestions func([]model.Suggestion)
}

// Option configures a Debouncer.
type Option func(*Config)

// WithDelays sets the search and autocomplete delays.
func WithDelays(search, autocomplete time.Duration) Option {
	return func(c *Config) {
		c.SearchDelay = search
		c.AutocompleteDelay = autocomplete
	}
}

// WithMinLength sets the minimum query length for autocomplete.
func WithMinLength(n int) Option {
	return func(c *Config) {
		c.MinLength = n
	}
}

// WithClock sets the clock driving the timers.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) {
		cfg.Clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithOnClear sets the callback run when the query is emptied.
func WithOnClear(fn func()) Option {
	return func(c *Config) {
		c.OnClear = fn
	}
}

// WithOnSuggestions sets the callback run when suggestions change.
func WithOnSuggestions(fn func([]model.Suggestion)) Option {
	return func(c *Config) {
		c.OnSuggestions = fn
	}
}

// Debouncer is the search box controller.
// All methods are safe for concurrent use. Callbacks run without internal locks held.
//
// Debouncer 是搜索框控制器。所有方法都可以安全地并发调用，回调执行时不持有内部锁。
type Debouncer struct {
	config    Config
	suggester Suggester
	onSearch  func(query string)

	searchSlot       *timer.Slot
	autocompleteSlot *timer.Slot

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	query       string
	suggestions []model.Suggestion
	selected    int
	gen         uint64
	closed      bool
}

// New creates a debouncer. onSearch receives the query current at fire time.
//
// New 创建一个防抖器。onSearch接收触发时刻的最新查询。
//
// Parameters:
//   - suggester: The autocomplete source
//   - onSearch: Called with the query when a search should run
//   - options: Optional configuration
//
// Returns:
//   - *Debouncer: A new debouncer
//   - error: An error if the configuration is invalid
func New(suggester Suggester, onSearch func(query string), options ...Option) (*Debouncer, error) {
	if suggester == nil || onSearch == nil {
		return nil, fmt.Errorf("search: suggester and onSearch are required")
	}

	config := Config{
		SearchDelay:       DefaultSearchDelay,
		AutocompleteDelay: DefaultAutocompleteDelay,
		MinLength:         DefaultMinLength,
		Clock:             clock.System(),
		Logger:            slog.Default(),
	}
	for _, option := range options {
		option(&config)
	}
	if config.SearchDelay <= 0 || config.AutocompleteDelay <= 0 {
		return nil, fmt.Errorf("search: delays must be positive")
	}
	if config.MinLength < 1 {
		return nil, fmt.Errorf("search: minimum length must be at least 1")
	}
	config.Logger = config.Logger.With("component", "search")

	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		config:           config,
		suggester:        suggester,
		onSearch:         onSearch,
		searchSlot:       timer.NewSlot(config.Clock),
		autocompleteSlot: timer.NewSlot(config.Clock),
		ctx:              ctx,
		cancel:           cancel,
		selected:         -1,
	}, nil
}

// SetQuery handles an input change. Pending timers are cancelled. An empty
// query clears the search synchronously and schedules nothing. Otherwise the
// search is scheduled, plus autocomplete when the query is long enough;
// shorter queries clear the suggestions without a network call.
//
// SetQuery 处理输入变化，取消待触发的定时器。空查询会同步清除搜索且不调度任何定时器。
// 否则调度搜索，查询足够长时还会调度自动补全；较短的查询直接清空建议，不发起网络请求。
func (d *Debouncer) SetQuery(query string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	d.query = query
	d.gen++
	d.searchSlot.Stop()
	d.autocompleteSlot.Stop()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		changed := d.clearSuggestionsLocked()
		d.mu.Unlock()

		if d.config.OnClear != nil {
			d.config.OnClear()
		}
		d.publish(changed)
		return
	}

	d.searchSlot.Schedule(d.config.SearchDelay, d.fireSearch)

	changed := false
	if utf8.RuneCountInString(trimmed) >= d.config.MinLength {
		d.autocompleteSlot.Schedule(d.config.AutocompleteDelay, d.fireAutocomplete)
	} else {
		changed = d.clearSuggestionsLocked()
	}
	d.mu.Unlock()
	d.publish(changed)
}

// SelectSuggestion puts the suggestion's label in the search box and searches
// immediately, bypassing the debounce.
//
// SelectSuggestion 将建议的文本填入搜索框并立即搜索，跳过防抖等待。
func (d *Debouncer) SelectSuggestion(s model.Suggestion) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.query = s.Label()
	d.gen++
	d.searchSlot.Stop()
	d.autocompleteSlot.Stop()
	changed := d.clearSuggestionsLocked()
	query := d.query
	d.mu.Unlock()

	d.publish(changed)
	d.onSearch(query)
}

// Select picks the highlighted suggestion. Without a highlight it searches the
// current query immediately. It returns false when there was nothing to search.
//
// Select 选中当前高亮的建议；没有高亮时立即搜索当前查询。没有可搜索的内容时返回false。
func (d *Debouncer) Select() bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	if d.selected >= 0 && d.selected < len(d.suggestions) {
		s := d.suggestions[d.selected]
		d.mu.Unlock()
		d.SelectSuggestion(s)
		return true
	}

	query := d.query
	if strings.TrimSpace(query) == "" {
		d.mu.Unlock()
		return false
	}
	d.gen++
	d.searchSlot.Stop()
	d.autocompleteSlot.Stop()
	changed := d.clearSuggestionsLocked()
	d.mu.Unlock()

	d.publish(changed)
	d.onSearch(query)
	return true
}

// Next highlights the next suggestion, wrapping around.
func (d *Debouncer) Next() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.suggestions) == 0 {
		return -1
	}
	d.selected = (d.selected + 1) % len(d.suggestions)
	return d.selected
}

// Previous highlights the previous suggestion, wrapping around.
func (d *Debouncer) Previous() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.suggestions) == 0 {
		return -1
	}
	if d.selected <= 0 {
		d.selected = len(d.suggestions) - 1
	} else {
		d.selected--
	}
	return d.selected
}

// Dismiss hides the suggestions. Pending timers are left alone.
func (d *Debouncer) Dismiss() {
	d.mu.Lock()
	changed := d.clearSuggestionsLocked()
	d.mu.Unlock()
	d.publish(changed)
}

// Query returns the current input.
func (d *Debouncer) Query() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// Suggestions returns the current suggestions.
func (d *Debouncer) Suggestions() []model.Suggestion {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Suggestion(nil), d.suggestions...)
}

// Selected returns the highlighted index, -1 for none.
func (d *Debouncer) Selected() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Pending reports whether the search and autocomplete timers are armed.
func (d *Debouncer) Pending() (search, autocomplete bool) {
	return d.searchSlot.Pending(), d.autocompleteSlot.Pending()
}

// Close cancels all timers and any autocomplete in flight. Callbacks that have
// not started by then never fire.
//
// Close 取消所有定时器和进行中的自动补全。此时尚未开始的回调永远不会触发。
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.gen++
	d.searchSlot.Close()
	d.autocompleteSlot.Close()
	d.cancel()
}

func (d *Debouncer) fireSearch() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	query := d.query
	d.mu.Unlock()

	d.onSearch(query)
}

func (d *Debouncer) fireAutocomplete() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	query := strings.TrimSpace(d.query)
	gen := d.gen
	d.mu.Unlock()

	suggestions, err := d.suggester.Autocomplete(d.ctx, query)

	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		d.config.Logger.Debug("dropping stale suggestions", "query", query)
		return
	}
	var changed bool
	if err != nil {
		// 自动补全失败只记录日志，搜索仍可用
		d.config.Logger.Warn("autocomplete failed", "query", query, "error", err)
		changed = d.clearSuggestionsLocked()
	} else {
		d.suggestions = append([]model.Suggestion(nil), suggestions...)
		d.selected = -1
		changed = true
	}
	d.mu.Unlock()
	d.publish(changed)
}

func (d *Debouncer) clearSuggestionsLocked() bool {
	changed := len(d.suggestions) > 0
	d.suggestions = nil
	d.selected = -1
	return changed
}

func (d *Debouncer) publish(changed bool) {
	if !changed || d.config.OnSuggestions == nil {
		return
	}
	d.config.OnSuggestions(d.Suggestions())
}
