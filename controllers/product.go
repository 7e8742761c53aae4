package controllers

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"go-storefront/models"
	"go-storefront/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ProductController handles the catalogue: products and categories
type ProductController struct {
	Products   store.Collection[models.Product]
	Categories store.Collection[models.Category]
}

func NewProductController(products store.Collection[models.Product], categories store.Collection[models.Category]) *ProductController {
	return &ProductController{Products: products, Categories: categories}
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := decode(r, &product); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(product.Name) == "" || product.Price < 0 {
		http.Error(w, "Product name and a non-negative price are required", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now
	if err := pc.Products.Insert(r.Context(), product); err != nil {
		http.Error(w, "Error creating product", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// GetProducts retrieves products, optionally filtered by ?category= and ?featured=true
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []models.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = pc.Products.Where(r.Context(), "category", category)
	} else {
		products, err = pc.Products.All(r.Context())
	}
	if err != nil {
		http.Error(w, "Error fetching products", http.StatusServiceUnavailable)
		return
	}

	if r.URL.Query().Get("featured") == "true" {
		featured := products[:0]
		for _, p := range products {
			if p.Featured {
				featured = append(featured, p)
			}
		}
		products = featured
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductByID retrieves a single product by ID
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	product, err := pc.Products.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ProductPatch lists the editable product fields; nil fields are kept
type ProductPatch struct {
	Name        *string   `bson:"name,omitempty" json:"name"`
	Description *string   `bson:"description,omitempty" json:"description"`
	Price       *float64  `bson:"price,omitempty" json:"price"`
	Stock       *int      `bson:"stock,omitempty" json:"stock"`
	Category    *string   `bson:"category,omitempty" json:"category"`
	Images      *[]string `bson:"images,omitempty" json:"images"`
	Sizes       *[]string `bson:"sizes,omitempty" json:"sizes"`
	Colors      *[]string `bson:"colors,omitempty" json:"colors"`
	Featured    *bool     `bson:"featured,omitempty" json:"featured"`
}

// UpdateProduct merges the given fields into a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch ProductPatch
	if err := decodeStrict(r, &patch); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if (patch.Price != nil && *patch.Price < 0) || (patch.Stock != nil && *patch.Stock < 0) {
		http.Error(w, "Price and stock cannot be negative", http.StatusBadRequest)
		return
	}
	fields, err := patchFields(patch)
	if err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	fields["updated_at"] = time.Now().UTC()

	err = pc.Products.Merge(r.Context(), id, fields)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error updating product", http.StatusServiceUnavailable)
		return
	}
	product, err := pc.Products.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles deleting a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := pc.Products.Delete(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error deleting product", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (pc *ProductController) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := pc.Categories.All(r.Context())
	if err != nil {
		http.Error(w, "Error fetching categories", http.StatusServiceUnavailable)
		return
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory derives the slug from the name when none is given (Admin only)
func (pc *ProductController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if err := decode(r, &category); err != nil || strings.TrimSpace(category.Name) == "" {
		http.Error(w, "Category name is required", http.StatusBadRequest)
		return
	}
	if category.Slug == "" {
		category.Slug = slugify(category.Name)
	}
	category.ID = category.Slug

	err := pc.Categories.Insert(r.Context(), category)
	if errors.Is(err, store.ErrDuplicate) {
		http.Error(w, "Category already exists", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "Error creating category", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (pc *ProductController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := pc.Categories.Delete(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error deleting category", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func slugify(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
