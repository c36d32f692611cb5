package stubapi

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/shopsync/pkg/model"
)

var (
	errProductNotFound = errors.New("product not found")
	errForbidden       = errors.New("you can only manage your own products")
)

// Catalog 模拟商品数据库，按插入顺序保存商品
type Catalog struct {
	mu    sync.RWMutex
	order []string
	items map[string]model.Product
}

// NewCatalog 创建一个空目录
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]model.Product)}
}

// Seed 按顺序写入商品，缺少ID的商品会分配一个新ID
func (c *Catalog) Seed(products ...model.Product) []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		out = append(out, c.insertLocked(p))
	}
	return out
}

// List 返回全部商品
func (c *Catalog) List() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Page 返回第page页（从1开始）的商品以及是否还有下一页
func (c *Catalog) Page(page, limit int) ([]model.Product, bool) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 8
	}

	all := c.List()
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Product{}, false
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], end < len(all)
}

// Get 按ID查找商品
func (c *Catalog) Get(id string) (model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.items[id]
	if !ok {
		return model.Product{}, errProductNotFound
	}
	return p, nil
}

// Owned 返回会话可管理的商品，管理员可以看到全部商品
func (c *Catalog) Owned(session model.Session) []model.Product {
	out := []model.Product{}
	for _, p := range c.List() {
		if session.Owns(p) {
			out = append(out, p)
		}
	}
	return out
}

// Search 按名称、描述和分类匹配商品
// 模糊匹配时要求查询中的字符按顺序出现在名称中
func (c *Catalog) Search(query string, fuzzy bool, category string) []model.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []model.Product{}
	for _, p := range c.List() {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if matches(p, q, fuzzy) {
			out = append(out, p)
		}
	}
	return out
}

// Autocomplete 返回名称以查询开头的建议，其次是名称包含查询的建议
func (c *Catalog) Autocomplete(query string, limit int) []model.Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	type ranked struct {
		s    model.Suggestion
		rank int
		pos  int
	}

	var hits []ranked
	for i, p := range c.List() {
		name := strings.ToLower(p.Name)
		rank := -1
		switch {
		case strings.HasPrefix(name, q):
			rank = 0
		case strings.Contains(name, q):
			rank = 1
		}
		if rank >= 0 {
			hits = append(hits, ranked{model.Suggestion{ID: p.ID, Name: p.Name, Category: p.Category}, rank, i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].pos < hits[j].pos
	})

	out := []model.Suggestion{}
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, h.s)
	}
	return out
}

// Create 插入一个新商品，所有者为当前会话用户
func (c *Catalog) Create(session model.Session, p model.Product) model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	p.ID = ""
	p.Owner = session.UserID
	return c.insertLocked(p)
}

// Update 替换商品的可编辑字段，非管理员只能修改自己的商品
func (c *Catalog) Update(session model.Session, id string, patch model.Product) (model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.items[id]
	if !ok {
		return model.Product{}, errProductNotFound
	}
	if !session.Owns(current) {
		return model.Product{}, errForbidden
	}

	if patch.Name != "" {
		current.Name = patch.Name
	}
	if patch.Description != "" {
		current.Description = patch.Description
	}
	if patch.Category != "" {
		current.Category = patch.Category
	}
	if patch.Variants != nil {
		current.Variants = patch.Variants
	}
	c.items[id] = current
	return current, nil
}

// Delete 删除商品，非管理员只能删除自己的商品
func (c *Catalog) Delete(session model.Session, id string) (model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.items[id]
	if !ok {
		return model.Product{}, errProductNotFound
	}
	if !session.Owns(current) {
		return model.Product{}, errForbidden
	}

	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return current, nil
}

func (c *Catalog) insertLocked(p model.Product) model.Product {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Variants == nil {
		p.Variants = []model.Variant{}
	}
	if _, exists := c.items[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.items[p.ID] = p
	return p
}

func matches(p model.Product, q string, fuzzy bool) bool {
	if q == "" {
		return true
	}
	fields := []string{p.Name, p.Description, p.Category}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	if !fuzzy {
		return false
	}

	// 子序列匹配
	want := []rune(q)
	i := 0
	for _, r := range strings.ToLower(p.Name) {
		if i < len(want) && want[i] == r {
			i++
		}
	}
	return i == len(want)
}
