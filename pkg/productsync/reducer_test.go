package productsync

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/shopsync/pkg/model"
)

func ids(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func items(idList ...string) []model.Product {
	out := make([]model.Product, 0, len(idList))
	for _, id := range idList {
		out = append(out, model.Product{ID: id, Name: "Product " + id})
	}
	return out
}

func TestMergeUnique(t *testing.T) {
	current := items("1", "2", "3")
	current[2].Name = "client copy"

	merged := MergeUnique(current, items("3", "4", "5"))
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(merged))
	require.Equal(t, "client copy", merged[2].Name, "the earlier copy wins")
	require.Len(t, current, 3, "inputs are not modified")
}

func TestReduce(t *testing.T) {
	base := Reduce(State{}, Fetched(items("1", "2", "3"), 1, true))

	t.Run("fetched replaces wholesale", func(t *testing.T) {
		s := Reduce(base, Fetched(items("9"), 1, false))
		require.Equal(t, []string{"9"}, ids(s.Products))
		require.False(t, s.HasMore)
		require.Equal(t, StatusIdle, s.Fetch)
	})

	t.Run("appended dedups and advances", func(t *testing.T) {
		s := Reduce(base, Appended(2, items("3", "4", "5"), false))
		require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(s.Products))
		require.Equal(t, 2, s.Page)
		require.False(t, s.HasMore)
	})

	t.Run("created is idempotent", func(t *testing.T) {
		p := model.Product{ID: "7", Name: "New"}
		s := Reduce(Reduce(base, Created(p)), Created(p))
		require.Equal(t, []string{"7", "1", "2", "3"}, ids(s.Products))
	})

	t.Run("updated replaces in place", func(t *testing.T) {
		s := Reduce(base, Updated(model.Product{ID: "2", Name: "Renamed"}))
		require.Equal(t, []string{"1", "2", "3"}, ids(s.Products))
		require.Equal(t, "Renamed", s.Products[1].Name)
		require.Equal(t, "Product 2", base.Products[1].Name, "the previous state is untouched")
	})

	t.Run("updated ignores unknown ids", func(t *testing.T) {
		s := Reduce(base, Updated(model.Product{ID: "42"}))
		require.Equal(t, ids(base.Products), ids(s.Products))
	})

	t.Run("deleted filters both lists", func(t *testing.T) {
		s := Reduce(base, OwnerFetched(items("2", "8")))
		s = Reduce(s, Deleted("2"))
		s = Reduce(s, Deleted("2"))
		require.Equal(t, []string{"1", "3"}, ids(s.Products))
		require.Equal(t, []string{"8"}, ids(s.OwnerProducts))
	})

	t.Run("failure keeps the list", func(t *testing.T) {
		s := Reduce(Reduce(base, Started(ScopeMore)), Failed(ScopeMore, "offline"))
		require.Equal(t, StatusError, s.More)
		require.Equal(t, "offline", s.Error)
		require.Len(t, s.Products, 3)
	})

	t.Run("settled returns the machine to idle", func(t *testing.T) {
		s := Reduce(Reduce(base, Started(ScopeMore)), Settled(ScopeMore))
		require.Equal(t, StatusIdle, s.More)
		require.False(t, s.Busy())
		require.Equal(t, ids(base.Products), ids(s.Products))
		require.Equal(t, 1, s.Page)
	})

	t.Run("search cleared resets results to nil", func(t *testing.T) {
		s := Reduce(base, Searched(model.SearchState{Query: "x", Results: []model.Product{}}))
		require.True(t, s.Search.Active())
		s = Reduce(s, SearchCleared())
		require.False(t, s.Search.Active())
		require.Nil(t, s.Search.Results)
	})
}

// TestReduceOrdering checks that a fetch racing a pushed event resolves by
// application order.
func TestReduceOrdering(t *testing.T) {
	base := Reduce(State{}, Fetched(items("1", "2"), 1, false))
	pushed := Created(model.Product{ID: "3"})
	fetched := Fetched(items("1", "2"), 1, false)

	eventLast := Reduce(Reduce(base, fetched), pushed)
	fetchLast := Reduce(Reduce(base, pushed), fetched)

	require.Equal(t, []string{"3", "1", "2"}, ids(eventLast.Products))
	require.Equal(t, []string{"1", "2"}, ids(fetchLast.Products))
}

func BenchmarkMergeUnique(b *testing.B) {
	current := make([]model.Product, 0, 200)
	for i := 0; i < 200; i++ {
		current = append(current, model.Product{ID: strconv.Itoa(i)})
	}
	next := current[150:]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MergeUnique(current, next)
	}
}
