package stubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yourusername/shopsync/pkg/model"
)

// Real-time events emitted on mutations.
const (
	EventProductCreated = "product:created"
	EventProductUpdated = "product:updated"
	EventProductDeleted = "product:deleted"
)

const (
	defaultPageLimit  = 8
	suggestionLimit   = 8
	variantImageField = "variantImages_"
	maxUploadMemory   = 8 << 20
)

// productHandler 处理商品API的HTTP请求
type productHandler struct {
	catalog *Catalog
	hub     *Hub
	logger  *slog.Logger
}

func (h *productHandler) listPage(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultPageLimit)

	products, hasNext := h.catalog.Page(page, limit)
	c.JSON(http.StatusOK, model.Page{Products: products, HasNext: hasNext})
}

func (h *productHandler) listAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.catalog.List()})
}

func (h *productHandler) get(c *gin.Context) {
	product, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *productHandler) listOwner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.catalog.Owned(sessionFrom(c))})
}

func (h *productHandler) search(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "search query is required"})
		return
	}
	fuzzy, _ := strconv.ParseBool(c.DefaultQuery("fuzzy", "false"))
	products := h.catalog.Search(query, fuzzy, c.Query("category"))
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *productHandler) autocomplete(c *gin.Context) {
	suggestions := h.catalog.Autocomplete(c.Query("q"), suggestionLimit)
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *productHandler) create(c *gin.Context) {
	input, err := bindProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if strings.TrimSpace(input.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "product name is required"})
		return
	}

	product := h.catalog.Create(sessionFrom(c), input)
	h.broadcast(EventProductCreated, product)
	c.JSON(http.StatusCreated, product)
}

func (h *productHandler) update(c *gin.Context) {
	input, err := bindProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	product, err := h.catalog.Update(sessionFrom(c), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	h.broadcast(EventProductUpdated, product)
	c.JSON(http.StatusOK, product)
}

func (h *productHandler) remove(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.catalog.Delete(sessionFrom(c), id); err != nil {
		writeError(c, err)
		return
	}
	h.broadcast(EventProductDeleted, gin.H{"_id": id})
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully", "_id": id})
}

func (h *productHandler) broadcast(event string, data interface{}) {
	if err := h.hub.Broadcast(event, data); err != nil {
		h.logger.Warn("failed to broadcast event", "event", event, "error", err)
	}
}

// bindProductForm 解析multipart表单：name/description/category字段、
// JSON编码的variants字段，以及按变体索引命名的图片文件
func bindProductForm(c *gin.Context) (model.Product, error) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		return model.Product{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	product := model.Product{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
	}
	if raw := c.PostForm("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &product.Variants); err != nil {
			return model.Product{}, fmt.Errorf("invalid variants: %w", err)
		}
	}

	for field, files := range c.Request.MultipartForm.File {
		if !strings.HasPrefix(field, variantImageField) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(field, variantImageField))
		if err != nil || index < 0 || index >= len(product.Variants) {
			return model.Product{}, fmt.Errorf("image field %s does not match a variant", field)
		}
		for _, file := range files {
			url := "/uploads/" + uuid.NewString() + "-" + file.Filename
			product.Variants[index].Images = append(product.Variants[index].Images, url)
		}
	}
	return product, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, errForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
