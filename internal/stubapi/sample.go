package stubapi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourusername/shopsync/pkg/model"
)

var sampleCategories = []string{"Shirts", "Pants", "Shoes", "Jackets", "Accessories"}

var sampleColors = []string{"Black", "White", "Navy", "Olive"}

// SampleProducts 生成n个示例商品，owner轮流分配给owners中的用户
// 商品ID留空，由Seed分配
func SampleProducts(n int, owners ...string) []model.Product {
	out := make([]model.Product, 0, n)
	for i := 1; i <= n; i++ {
		category := sampleCategories[(i-1)%len(sampleCategories)]
		price := decimal.New(int64(i)*1099, -2)

		// 每三个商品打一次折
		original := price
		if i%3 == 0 {
			original = price.Add(decimal.NewFromInt(10))
		}

		p := model.Product{
			Name:        fmt.Sprintf("%s %d", category, i),
			Description: fmt.Sprintf("Description for product %d", i),
			Category:    category,
			Variants: []model.Variant{{
				Color: sampleColors[i%len(sampleColors)],
				Sizes: []model.Size{
					{Size: "M", Price: price, OriginalPrice: original, Stock: i * 5 % 17},
					{Size: "L", Price: price.Add(decimal.NewFromInt(2)), OriginalPrice: original.Add(decimal.NewFromInt(2)), Stock: i % 4},
				},
			}},
		}
		if len(owners) > 0 {
			p.Owner = owners[(i-1)%len(owners)]
		}
		out = append(out, p)
	}
	return out
}
