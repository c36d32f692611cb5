package model

// SearchOptions narrows a product search.
type SearchOptions struct {
	Fuzzy    bool    `json:"fuzzy"`
	Category *string `json:"category"`
}

// SearchState is the persisted state of the product search box.
//
// Results is nil when no search is active. An empty, non-nil slice means the
// search executed and matched nothing.
//
// SearchState 是商品搜索框的持久化状态。
// Results为nil表示没有活动的搜索；非nil的空切片表示搜索已执行但没有匹配结果。
type SearchState struct {
	Query   string        `json:"query"`
	Results []Product     `json:"results"`
	Error   *string       `json:"error"`
	Options SearchOptions `json:"options"`
}

// Active reports whether a search has been executed and not cleared.
func (s SearchState) Active() bool {
	return s.Results != nil
}

// Clone returns a copy that does not share the results slice.
func (s SearchState) Clone() SearchState {
	out := s
	if s.Results != nil {
		out.Results = make([]Product, len(s.Results))
		copy(out.Results, s.Results)
	}
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	if s.Options.Category != nil {
		cat := *s.Options.Category
		out.Options.Category = &cat
	}
	return out
}
