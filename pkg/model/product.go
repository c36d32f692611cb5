// Package model defines the storefront payloads exchanged with the product API
// and kept in the session cache.
//
// Package model 定义与商品API交换并保存在会话缓存中的店面数据结构。
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product as returned by the product API.
// Derived values such as the minimum price are computed on demand and never stored.
//
// Product 表示商品API返回的目录商品。
// 最低价格等派生值按需计算，从不存储。
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Owner       string    `json:"owner,omitempty"`
	Variants    []Variant `json:"variants"`
}

// Variant is a color variant of a product.
type Variant struct {
	Color  string   `json:"color"`
	Images []string `json:"images,omitempty"`
	Sizes  []Size   `json:"sizes"`
}

// Size carries the price and stock of one size of a variant.
type Size struct {
	Size          string          `json:"size"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Stock         int             `json:"stock"`
}

// MinPrice returns the lowest size price across all variants.
// The second return value is false when the product has no sizes.
//
// MinPrice 返回所有变体中最低的尺码价格。
// 当商品没有任何尺码时，第二个返回值为false。
func (p Product) MinPrice() (decimal.Decimal, bool) {
	var (
		min   decimal.Decimal
		found bool
	)
	for _, v := range p.Variants {
		for _, s := range v.Sizes {
			if !found || s.Price.LessThan(min) {
				min = s.Price
				found = true
			}
		}
	}
	return min, found
}

// TotalStock sums the stock of every size of every variant.
func (p Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		for _, s := range v.Sizes {
			total += s.Stock
		}
	}
	return total
}

// InStock reports whether any size has stock left.
func (p Product) InStock() bool {
	return p.TotalStock() > 0
}

// OnSale reports whether any size is priced below its original price.
func (p Product) OnSale() bool {
	for _, v := range p.Variants {
		for _, s := range v.Sizes {
			if s.Price.LessThan(s.OriginalPrice) {
				return true
			}
		}
	}
	return false
}

// Page is one page of the paginated product listing.
type Page struct {
	Products []Product `json:"products"`
	HasNext  bool      `json:"hasNext"`
}

// Suggestion is an autocomplete entry.
type Suggestion struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Label returns the text a suggestion puts in the search box when selected.
func (s Suggestion) Label() string {
	return s.Name
}

// ProductInput is the payload of a create or update mutation.
// Images are keyed by variant index and uploaded as multipart files.
//
// ProductInput 是创建或更新操作的请求体。
// 图片按变体索引分组，作为multipart文件上传。
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Variants    []Variant
	Images      map[int][]ImageFile
}

// ImageFile is an in-memory image attached to a variant.
type ImageFile struct {
	Filename string
	Data     []byte
}

// Session identifies the active user of the storefront.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Roles that may manage products.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// CanManageProducts reports whether the session role is owner or admin.
func (s Session) CanManageProducts() bool {
	return s.Authenticated() && (s.Role == RoleOwner || s.Role == RoleAdmin)
}

// Owns reports whether the session should treat p as one of its own products.
// Admins own every product.
func (s Session) Owns(p Product) bool {
	if !s.CanManageProducts() {
		return false
	}
	return s.Role == RoleAdmin || (p.Owner != "" && p.Owner == s.UserID)
}
