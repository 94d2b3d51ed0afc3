package controllers

import (
	"context"
	"net/http"
	"shopease/models"
	"shopease/store"
	"shopease/utils"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ProductStore is the catalog persistence used by ProductController
type ProductStore interface {
	Create(ctx context.Context, p models.Product) (models.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Page(ctx context.Context, f models.ProductFilter) (models.ProductPage, error)
	Popular(ctx context.Context, n int) ([]models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.ProductUpdate) (models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ProductController handles product-related requests
type ProductController struct {
	Products ProductStore
	Timeouts utils.Timeouts
	Log      *zap.Logger

	policy *bluemonday.Policy
}

// NewProductController creates a new ProductController
func NewProductController(products ProductStore, timeouts utils.Timeouts, log *zap.Logger) *ProductController {
	return &ProductController{
		Products: products,
		Timeouts: timeouts.WithDefaults(),
		Log:      log,
		policy:   bluemonday.UGCPolicy(),
	}
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	// Decode the request body into product
	if err := decodeJSON(w, r, &product); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" || product.Price < 0 || product.Stock < 0 {
		writeMessage(w, http.StatusBadRequest, "Name is required and price and stock must not be negative")
		return
	}
	pc.sanitize(&product)
	product.OrderCount = 0

	// Insert the product into the database
	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Short, pc.Log, "create_product")
	defer cancel()
	created, err := pc.Products.Create(ctx, product)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"insertedId": created.ID, "product": created})
}

// GetAllProducts retrieves every product
func (pc *ProductController) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Medium, pc.Log, "list_products")
	defer cancel()
	products, err := pc.Products.List(ctx)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProducts retrieves one filtered page of products
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     atoiOr(q.Get("page"), 1),
		Limit:    atoiOr(q.Get("limit"), store.DefaultPageLimit),
	}

	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Medium, pc.Log, "page_products")
	defer cancel()
	page, err := pc.Products.Page(ctx, filter)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetPopularProducts retrieves the most ordered products
func (pc *ProductController) GetPopularProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Medium, pc.Log, "popular_products")
	defer cancel()
	products, err := pc.Products.Popular(ctx, store.PopularLimit)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductByID retrieves a single product by ID
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Short, pc.Log, "get_product")
	defer cancel()
	product, err := pc.Products.Get(ctx, id)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// UpdateProduct handles updating a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var upd models.ProductUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if (upd.Price != nil && *upd.Price < 0) || (upd.Stock != nil && *upd.Stock < 0) {
		writeMessage(w, http.StatusBadRequest, "Price and stock must not be negative")
		return
	}
	pc.sanitizeUpdate(&upd)
	if upd.Name != nil && *upd.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Name must not be empty")
		return
	}
	if len(store.ProductUpdateDoc(upd)) == 0 {
		writeMessage(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Short, pc.Log, "update_product")
	defer cancel()
	product, err := pc.Products.Update(ctx, id, upd)
	if err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles deleting a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := utils.WithTimeout(r.Context(), pc.Timeouts.Short, pc.Log, "delete_product")
	defer cancel()
	if err := pc.Products.Delete(ctx, id); err != nil {
		writeError(w, r, pc.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deletedCount": 1})
}

// sanitize strips markup from the free-text fields an admin submits
func (pc *ProductController) sanitize(p *models.Product) {
	p.Name = pc.policy.Sanitize(p.Name)
	p.Category = strings.TrimSpace(pc.policy.Sanitize(p.Category))
	p.Brand = pc.policy.Sanitize(p.Brand)
	p.Description = pc.policy.Sanitize(p.Description)
}

func (pc *ProductController) sanitizeUpdate(upd *models.ProductUpdate) {
	for _, field := range []*string{upd.Name, upd.Category, upd.Brand, upd.Description} {
		if field != nil {
			*field = strings.TrimSpace(pc.policy.Sanitize(*field))
		}
	}
}

// pathID parses an ObjectID route variable and answers 400 when it is malformed
func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid identifier format")
		return primitive.NilObjectID, false
	}
	return id, true
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
