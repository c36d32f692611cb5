package stubapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/shopsync/pkg/model"
)

var seller = model.Session{Token: "seller-token", UserID: "u1", Role: model.RoleOwner}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, n int) *Server {
	t.Helper()
	s := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithSession(seller))
	for i := 1; i <= n; i++ {
		s.Catalog().Seed(model.Product{
			ID:       fmt.Sprintf("p%d", i),
			Name:     fmt.Sprintf("Shirt %d", i),
			Category: "tops",
			Owner:    "u1",
		})
	}
	return s
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestCatalogPaging(t *testing.T) {
	c := NewCatalog()
	for i := 1; i <= 10; i++ {
		c.Seed(model.Product{ID: fmt.Sprint(i), Name: "P"})
	}

	t.Run("first page", func(t *testing.T) {
		products, hasNext := c.Page(1, 4)
		require.Len(t, products, 4)
		require.True(t, hasNext)
		require.Equal(t, "1", products[0].ID)
	})

	t.Run("last page", func(t *testing.T) {
		products, hasNext := c.Page(3, 4)
		require.Len(t, products, 2)
		require.False(t, hasNext)
	})

	t.Run("past the end", func(t *testing.T) {
		products, hasNext := c.Page(9, 4)
		require.Empty(t, products)
		require.NotNil(t, products)
		require.False(t, hasNext)
	})
}

func TestCatalogSearch(t *testing.T) {
	c := NewCatalog()
	c.Seed(
		model.Product{ID: "1", Name: "Blue Shirt", Category: "tops"},
		model.Product{ID: "2", Name: "Red Skirt", Category: "bottoms"},
		model.Product{ID: "3", Name: "Shirt Dress", Category: "dresses"},
	)

	require.Len(t, c.Search("shirt", false, ""), 2)
	require.Len(t, c.Search("shirt", false, "tops"), 1)
	require.Empty(t, c.Search("bsh", false, ""))
	require.Len(t, c.Search("bsh", true, ""), 1)

	suggestions := c.Autocomplete("sh", 10)
	require.Len(t, suggestions, 2)
	require.Equal(t, "3", suggestions[0].ID, "prefix matches rank first")
}

func TestPageEndpoint(t *testing.T) {
	s := newTestServer(t, 10)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/products/page?page=1&limit=8", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(requestIDHeader))

	var page model.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Products, 8)
	require.True(t, page.HasNext)
	require.Equal(t, 1, s.Requests(RoutePage))
}

func TestOwnerRequiresSession(t *testing.T) {
	s := newTestServer(t, 3)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/products/owner/products", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/products/owner/products", nil)
	req.Header.Set("Authorization", "Bearer "+seller.Token)
	w = do(t, s, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Products []model.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Products, 3)
}

func TestCreateMultipart(t *testing.T) {
	s := newTestServer(t, 0)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Linen Shirt")
	mw.WriteField("category", "tops")
	mw.WriteField("variants", `[{"color":"white","sizes":[{"size":"M","price":"19.99","originalPrice":"25","stock":3}]}]`)
	part, err := mw.CreateFormFile("variantImages_0", "front.jpg")
	require.NoError(t, err)
	part.Write([]byte("jpeg"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+seller.Token)
	w := do(t, s, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "u1", created.Owner)
	require.Len(t, created.Variants, 1)
	require.Len(t, created.Variants[0].Images, 1)
	require.Equal(t, 3, created.TotalStock())
	require.Len(t, s.Catalog().List(), 1)
}

func TestFailNext(t *testing.T) {
	s := newTestServer(t, 1)
	s.FailNext(RouteList, http.StatusServiceUnavailable, "maintenance")

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.JSONEq(t, `{"message":"maintenance"}`, w.Body.String())

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, s.TotalRequests())
}

func TestSampleProducts(t *testing.T) {
	products := SampleProducts(6, "u1", "u2")
	require.Len(t, products, 6)
	require.Equal(t, "u1", products[0].Owner)
	require.Equal(t, "u2", products[1].Owner)
	require.True(t, products[2].OnSale())
	require.False(t, products[0].OnSale())

	catalog := NewCatalog()
	seeded := catalog.Seed(products...)
	for _, p := range seeded {
		require.NotEmpty(t, p.ID)
	}
	page, hasNext := catalog.Page(1, 4)
	require.Len(t, page, 4)
	require.True(t, hasNext)
}
