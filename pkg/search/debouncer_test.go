package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/shopsync/internal/stubapi"
	"github.com/yourusername/shopsync/pkg/api"
	"github.com/yourusername/shopsync/pkg/cache"
	"github.com/yourusername/shopsync/pkg/clock"
	"github.com/yourusername/shopsync/pkg/model"
	"github.com/yourusername/shopsync/pkg/productsync"
)

var epoch = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSuggester records autocomplete calls. A query in block waits for its
// channel to close before answering.
type fakeSuggester struct {
	mu    sync.Mutex
	calls []string
	err   error
	block map[string]chan struct{}
}

func (f *fakeSuggester) Autocomplete(ctx context.Context, query string) ([]model.Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	wait := f.block[query]
	err := f.err
	f.mu.Unlock()

	if wait != nil {
		<-wait
	}
	if err != nil {
		return nil, err
	}
	return []model.Suggestion{
		{ID: "1", Name: query + " shirt"},
		{ID: "2", Name: query + " skirt"},
		{ID: "3", Name: query + " shorts"},
	}, nil
}

func (f *fakeSuggester) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type searchRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *searchRecorder) search(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
}

func (r *searchRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func newTestDebouncer(t *testing.T, suggester Suggester, options ...Option) (*Debouncer, *clock.Manual, *searchRecorder) {
	t.Helper()
	clk := clock.NewManual(epoch)
	rec := &searchRecorder{}
	d, err := New(suggester, rec.search, append([]Option{WithClock(clk), WithLogger(quietLogger())}, options...)...)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, clk, rec
}

// TestDebounceTiming types "a" then "ab" 50ms apart and expects one
// autocomplete and one search, both for "ab".
func TestDebounceTiming(t *testing.T) {
	suggester := &fakeSuggester{}
	d, clk, rec := newTestDebouncer(t, suggester)

	d.SetQuery("a")
	clk.Advance(50 * time.Millisecond)
	d.SetQuery("ab")

	clk.Advance(199 * time.Millisecond)
	require.Empty(t, suggester.callList())

	clk.Advance(time.Millisecond)
	require.Equal(t, []string{"ab"}, suggester.callList())
	require.Len(t, d.Suggestions(), 3)

	clk.Advance(299 * time.Millisecond)
	require.Empty(t, rec.list())

	clk.Advance(time.Millisecond)
	require.Equal(t, []string{"ab"}, rec.list())

	clk.Advance(time.Second)
	require.Equal(t, []string{"ab"}, rec.list())
	require.Equal(t, []string{"ab"}, suggester.callList())
}

// TestSearchReadsQueryAtFireTime checks that the search uses the input current
// when the timer fires.
func TestSearchReadsQueryAtFireTime(t *testing.T) {
	d, clk, rec := newTestDebouncer(t, &fakeSuggester{})

	d.SetQuery("jacket")
	d.mu.Lock()
	d.query = "jackets"
	d.mu.Unlock()

	clk.Advance(DefaultSearchDelay)
	require.Equal(t, []string{"jackets"}, rec.list())
}

func TestShortQueryClearsSuggestions(t *testing.T) {
	suggester := &fakeSuggester{}
	var published [][]model.Suggestion
	d, clk, _ := newTestDebouncer(t, suggester, WithOnSuggestions(func(s []model.Suggestion) {
		published = append(published, s)
	}))

	d.SetQuery("dr")
	clk.Advance(DefaultAutocompleteDelay)
	require.Len(t, d.Suggestions(), 3)

	d.SetQuery("d")
	require.Empty(t, d.Suggestions())
	search, autocomplete := d.Pending()
	require.True(t, search)
	require.False(t, autocomplete)
	require.Equal(t, []string{"dr"}, suggester.callList())
	require.Len(t, published, 2)
	require.Empty(t, published[1])
}

func TestEmptyQueryClearsSynchronously(t *testing.T) {
	cleared := 0
	d, clk, rec := newTestDebouncer(t, &fakeSuggester{}, WithOnClear(func() { cleared++ }))

	d.SetQuery("boots")
	require.Equal(t, 2, clk.Pending())

	d.SetQuery("   ")
	require.Equal(t, 1, cleared)
	require.Zero(t, clk.Pending())
	search, autocomplete := d.Pending()
	require.False(t, search)
	require.False(t, autocomplete)

	clk.Advance(time.Second)
	require.Empty(t, rec.list())
}

func TestKeyboardNavigation(t *testing.T) {
	d, clk, rec := newTestDebouncer(t, &fakeSuggester{})

	require.Equal(t, -1, d.Next(), "nothing to navigate")

	d.SetQuery("co")
	clk.Advance(DefaultAutocompleteDelay)
	require.Len(t, d.Suggestions(), 3)

	require.Equal(t, 0, d.Next())
	require.Equal(t, 1, d.Next())
	require.Equal(t, 0, d.Previous())
	require.Equal(t, 2, d.Previous())
	require.Equal(t, 0, d.Next())
	require.Equal(t, 1, d.Next())

	require.True(t, d.Select())
	require.Equal(t, []string{"co skirt"}, rec.list(), "selection searches immediately")
	require.Equal(t, "co skirt", d.Query())
	require.Empty(t, d.Suggestions())
	search, autocomplete := d.Pending()
	require.False(t, search)
	require.False(t, autocomplete)

	clk.Advance(time.Second)
	require.Len(t, rec.list(), 1)
}

func TestSelectWithoutHighlight(t *testing.T) {
	d, _, rec := newTestDebouncer(t, &fakeSuggester{})

	require.False(t, d.Select())

	d.SetQuery("hat")
	require.True(t, d.Select())
	require.Equal(t, []string{"hat"}, rec.list())
}

func TestDismiss(t *testing.T) {
	d, clk, rec := newTestDebouncer(t, &fakeSuggester{})

	d.SetQuery("scarf")
	clk.Advance(DefaultAutocompleteDelay)
	d.Next()
	d.Dismiss()

	require.Empty(t, d.Suggestions())
	require.Equal(t, -1, d.Selected())

	clk.Advance(DefaultSearchDelay)
	require.Equal(t, []string{"scarf"}, rec.list(), "dismiss leaves the search timer alone")
}

func TestAutocompleteFailure(t *testing.T) {
	suggester := &fakeSuggester{}
	d, clk, rec := newTestDebouncer(t, suggester)

	d.SetQuery("coat")
	clk.Advance(DefaultAutocompleteDelay)
	require.Len(t, d.Suggestions(), 3)

	suggester.mu.Lock()
	suggester.err = errors.New("autocomplete unavailable")
	suggester.mu.Unlock()

	d.SetQuery("coats")
	clk.Advance(DefaultAutocompleteDelay)
	require.Empty(t, d.Suggestions())

	clk.Advance(DefaultSearchDelay)
	require.Equal(t, []string{"coats"}, rec.list(), "search still runs")
}

// TestStaleSuggestionsDropped checks that a slow autocomplete response for an
// older query does not replace the suggestions of a newer one.
func TestStaleSuggestionsDropped(t *testing.T) {
	release := make(chan struct{})
	suggester := &fakeSuggester{block: map[string]chan struct{}{"be": release}}
	d, clk, _ := newTestDebouncer(t, suggester)

	d.SetQuery("be")
	done := make(chan struct{})
	go func() {
		clk.Advance(DefaultAutocompleteDelay)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(suggester.callList()) == 1 }, time.Second, time.Millisecond)

	d.SetQuery("bel")
	close(release)
	<-done
	require.Empty(t, d.Suggestions())

	clk.Advance(DefaultAutocompleteDelay)
	require.Equal(t, []string{"be", "bel"}, suggester.callList())
	require.Equal(t, "bel shirt", d.Suggestions()[0].Name)
}

func TestCloseCancelsTimers(t *testing.T) {
	suggester := &fakeSuggester{}
	d, clk, rec := newTestDebouncer(t, suggester)

	d.SetQuery("sandals")
	d.Close()
	require.Zero(t, clk.Pending())

	clk.Advance(time.Second)
	d.SetQuery("boots")
	clk.Advance(time.Second)
	d.SelectSuggestion(model.Suggestion{Name: "boots"})

	require.Empty(t, rec.list())
	require.Empty(t, suggester.callList())
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, func(string) {})
	require.Error(t, err)
	_, err = New(&fakeSuggester{}, func(string) {}, WithDelays(0, time.Second))
	require.Error(t, err)
	_, err = New(&fakeSuggester{}, func(string) {}, WithMinLength(0))
	require.Error(t, err)
}

// TestWithController drives the search state of a controller through the
// debouncer against the stub API.
func TestWithController(t *testing.T) {
	stub := stubapi.New(stubapi.WithLogger(quietLogger()))
	stub.Catalog().Seed(
		model.Product{ID: "1", Name: "Cotton Shirt"},
		model.Product{ID: "2", Name: "Cotton Shorts"},
		model.Product{ID: "3", Name: "Wool Coat"},
	)
	server := httptest.NewServer(stub.Handler())
	defer server.Close()

	client, err := api.NewClient(server.URL, api.WithLogger(quietLogger()))
	require.NoError(t, err)
	clk := clock.NewManual(epoch)
	store, err := cache.New(cache.NewMemoryStorage(), cache.WithClock(clk), cache.WithLogger(quietLogger()))
	require.NoError(t, err)
	ctrl, err := productsync.New(client, store, productsync.WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx := context.Background()
	d, err := New(client,
		func(q string) { ctrl.Search(ctx, q, model.SearchOptions{}) },
		WithClock(clk),
		WithLogger(quietLogger()),
		WithOnClear(func() { ctrl.ClearSearch(ctx) }),
	)
	require.NoError(t, err)
	defer d.Close()

	d.SetQuery("c")
	clk.Advance(100 * time.Millisecond)
	d.SetQuery("cotton")
	clk.Advance(DefaultSearchDelay)

	require.Equal(t, 1, stub.Requests(stubapi.RouteSearch))
	require.Equal(t, 1, stub.Requests(stubapi.RouteAutocomplete))
	require.Len(t, d.Suggestions(), 2)
	require.Len(t, ctrl.SearchState().Results, 2)

	d.SetQuery("")
	require.Nil(t, ctrl.SearchState().Results)
	require.Zero(t, clk.Pending())
}
