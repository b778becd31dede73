package catalog

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urbangulal/urbangulal/internal/domain"
	"go.uber.org/zap"
)

const customIDAttempts = 5

// Resolver merges the static catalog with persisted overrides.
type Resolver struct {
	catalog *Store
	repo    OverrideRepository
}

func NewResolver(catalog *Store, repo OverrideRepository) *Resolver {
	return &Resolver{catalog: catalog, repo: repo}
}

func (r *Resolver) Catalog() *Store {
	return r.catalog
}

// ListProducts returns catalog products in declaration order followed by
// custom products. Hidden products are dropped unless includeHidden is set.
// When overrides cannot be loaded the catalog defaults are served.
func (r *Resolver) ListProducts(ctx context.Context, category string, includeHidden bool) []domain.Product {
	overrides, err := r.repo.List(ctx)
	if err != nil {
		zap.L().Warn("load product overrides failed, serving catalog defaults", zap.Error(err))
		overrides = nil
	}
	byID := make(map[int64]*domain.ProductOverride, len(overrides))
	for i := range overrides {
		byID[overrides[i].ProductID] = &overrides[i]
	}

	products := make([]domain.Product, 0, len(r.catalog.items)+len(overrides))
	for _, it := range r.catalog.items {
		products = append(products, Resolve(it, byID[it.ID]))
	}
	for i := range overrides {
		o := &overrides[i]
		if o.IsCustom && !r.catalog.Has(o.ProductID) {
			products = append(products, Resolve(domain.CatalogItem{ID: o.ProductID}, o))
		}
	}

	filterCategory := strings.TrimSpace(category)
	out := products[:0]
	for _, p := range products {
		if !includeHidden && !p.Available {
			continue
		}
		if filterCategory != "" && filterCategory != AllCategories && p.Category != filterCategory {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Resolve overlays an override onto a catalog entry. A nil override yields
// the catalog defaults.
func Resolve(item domain.CatalogItem, o *domain.ProductOverride) domain.Product {
	p := domain.Product{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Image:       item.Image,
		Price:       item.Price,
		Available:   true,
		InStock:     true,
	}
	if o == nil {
		return p
	}
	if o.Name != nil {
		p.Name = *o.Name
	}
	if o.Category != nil {
		p.Category = *o.Category
	}
	if o.Description != nil {
		p.Description = *o.Description
	}
	if o.Image != nil {
		p.Image = *o.Image
	}
	if o.Price != nil {
		p.Price = *o.Price
	}
	if o.Available != nil {
		p.Available = *o.Available
	}
	if o.InStock != nil {
		p.InStock = *o.InStock
	}
	p.IsCustom = o.IsCustom
	return p
}

// GetProduct resolves a single product, hidden or not.
func (r *Resolver) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	o, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load product override")
	}
	item, inCatalog := r.catalog.Get(id)
	if !inCatalog && (o == nil || !o.IsCustom) {
		return nil, domain.NotFound("product", id)
	}
	if !inCatalog {
		item = domain.CatalogItem{ID: id}
	}
	p := Resolve(item, o)
	return &p, nil
}

func (r *Resolver) exists(ctx context.Context, id int64) (bool, error) {
	if r.catalog.Has(id) {
		return true, nil
	}
	o, err := r.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return o != nil && o.IsCustom, nil
}

func validatePatch(patch domain.ProductPatch) error {
	if patch.Empty() {
		return domain.Invalid("No fields to update")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return domain.Invalid("Price must not be negative")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return domain.Invalid("Name must not be empty")
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return domain.Invalid("Category must not be empty")
	}
	return nil
}

// SetProductOverride upserts the supplied patch fields for id and returns
// the resolved product. Fields absent from the patch keep their prior value.
func (r *Resolver) SetProductOverride(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	ok, err := r.exists(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "check product")
	}
	if !ok {
		return nil, domain.NotFound("product", id)
	}
	if err := r.repo.Upsert(ctx, id, patch); err != nil {
		return nil, errors.Wrap(err, "save product override")
	}
	zap.L().Info("product override saved", zap.Int64("product_id", id))
	return r.GetProduct(ctx, id)
}

// SetPrice is SetProductOverride with only the price field.
func (r *Resolver) SetPrice(ctx context.Context, id int64, price int64) (*domain.Product, error) {
	return r.SetProductOverride(ctx, id, domain.ProductPatch{Price: &price})
}

type CustomProductInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       *int64 `json:"price"`
}

// CreateCustomProduct adds a product that exists only as an override record.
// Its id is one greater than any catalog or override id.
func (r *Resolver) CreateCustomProduct(ctx context.Context, in CustomProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" {
		return nil, domain.Invalid("Name and category are required")
	}
	var price int64
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, domain.Invalid("Price must not be negative")
		}
		price = *in.Price
	}
	description := strings.TrimSpace(in.Description)
	image := strings.TrimSpace(in.Image)
	available, inStock := true, true

	for attempt := 0; attempt < customIDAttempts; attempt++ {
		maxID, err := r.repo.MaxID(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "query max product id")
		}
		if r.catalog.MaxID() > maxID {
			maxID = r.catalog.MaxID()
		}
		now := time.Now()
		row := &domain.ProductOverride{
			ProductID:   maxID + 1,
			Name:        &name,
			Category:    &category,
			Description: &description,
			Image:       &image,
			Price:       &price,
			Available:   &available,
			InStock:     &inStock,
			IsCustom:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created, err := r.repo.CreateIfAbsent(ctx, row)
		if err != nil {
			return nil, errors.Wrap(err, "create custom product")
		}
		if created {
			zap.L().Info("custom product created", zap.Int64("product_id", row.ProductID), zap.String("name", name))
			p := Resolve(domain.CatalogItem{ID: row.ProductID}, row)
			return &p, nil
		}
	}
	return nil, errors.New("could not allocate custom product id")
}

// BulkPriceResult lists the ids whose price was written and the keys that
// were skipped for being unknown, non-numeric or negative.
type BulkPriceResult struct {
	Updated []int64  `json:"updated"`
	Skipped []string `json:"skipped"`
}

// BulkSetPrices writes the price of every valid entry. Invalid entries are
// skipped without failing the call.
func (r *Resolver) BulkSetPrices(ctx context.Context, prices map[string]interface{}) (*BulkPriceResult, error) {
	result := &BulkPriceResult{Updated: []int64{}, Skipped: []string{}}
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := r.repo.Transaction(ctx, func(repo OverrideRepository) error {
		tx := &Resolver{catalog: r.catalog, repo: repo}
		for _, key := range keys {
			id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
			if err != nil {
				result.Skipped = append(result.Skipped, key)
				continue
			}
			price, ok := ParsePrice(prices[key])
			if !ok {
				result.Skipped = append(result.Skipped, key)
				continue
			}
			found, err := tx.exists(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				result.Skipped = append(result.Skipped, key)
				continue
			}
			if err := repo.Upsert(ctx, id, domain.ProductPatch{Price: &price}); err != nil {
				return err
			}
			result.Updated = append(result.Updated, id)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "bulk set prices")
	}
	if len(result.Skipped) > 0 {
		zap.L().Info("bulk price update skipped entries", zap.Strings("skipped", result.Skipped))
	}
	return result, nil
}

// ParsePrice coerces a decoded JSON value into a non-negative whole price.
func ParsePrice(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if trimmed := strings.TrimLeft(s, "0"); trimmed != "" && trimmed[0] != '.' {
			s = trimmed
		}
		v = s
	}
	price, err := cast.ToInt64E(v)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}

// Categories returns "All", the catalog categories, then any further
// category carried by a custom or overridden product.
func (r *Resolver) Categories(ctx context.Context) []string {
	out := []string{AllCategories}
	seen := map[string]bool{AllCategories: true}
	for _, c := range r.catalog.Categories() {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, p := range r.ListProducts(ctx, "", false) {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}
