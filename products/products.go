package products

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"time"

	"storefront/apifeatures"
	"storefront/db"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pageSize      = 10
	featuredLimit = 8
)

// SearchFields are matched by the keyword parameter.
var SearchFields = []string{"name", "description", "brand", "category"}

func listActive(ctx context.Context, base bson.M, params url.Values) (utils.M, error) {
	if base == nil {
		base = bson.M{}
	}
	features := apifeatures.New(base, params).Search(SearchFields...).Filter().Sort().Paginate(pageSize)
	features.Query["isActive"] = true

	// reviews are served from their own endpoint
	features.Options.SetProjection(bson.M{"reviews": 0})

	cur, err := db.ProductCollection.Find(ctx, features.Query, features.Options)
	if err != nil {
		return nil, utils.Internal("Failed to fetch products", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, utils.Internal("Failed to fetch products", err)
	}
	total, err := db.ProductCollection.CountDocuments(ctx, features.Query)
	if err != nil {
		return nil, utils.Internal("Failed to count products", err)
	}

	return utils.M{
		"products": products,
		"count":    len(products),
		"total":    total,
		"page":     features.Page,
		"pages":    features.TotalPages(total),
	}, nil
}

// GetProducts handles GET /api/products
func GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	data, err := listActive(ctx, nil, r.URL.Query())
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, data)
	return nil
}

// GetProduct handles GET /api/products/:id
func GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := getCached(ctx, id)
	if err != nil {
		return err
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"product": product})
	return nil
}

// categoryFilter matches a category name exactly, ignoring case.
func categoryFilter(category string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(category) + "$", "$options": "i"}
}

// GetByCategory handles GET /api/products/category/:category
func GetByCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	category := ps.ByName("category")
	if category == "" {
		return utils.BadRequest("Category is required")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	params := r.URL.Query()
	params.Del("category")
	data, err := listActive(ctx, bson.M{"category": categoryFilter(category)}, params)
	if err != nil {
		return err
	}
	data["category"] = category
	utils.RespondWithSuccess(w, http.StatusOK, data)
	return nil
}

// Search handles GET /api/products/search/:keyword
func Search(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	params := r.URL.Query()
	params.Set("keyword", ps.ByName("keyword"))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	data, err := listActive(ctx, nil, params)
	if err != nil {
		return err
	}
	data["keyword"] = ps.ByName("keyword")
	utils.RespondWithSuccess(w, http.StatusOK, data)
	return nil
}

// GetFeatured handles GET /api/products/featured
func GetFeatured(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(featuredLimit).
		SetProjection(bson.M{"reviews": 0})
	cur, err := db.ProductCollection.Find(ctx, bson.M{"isActive": true, "isFeatured": true}, opts)
	if err != nil {
		return utils.Internal("Failed to fetch featured products", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return utils.Internal("Failed to fetch featured products", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"products": products})
	return nil
}

// GetCategories handles GET /api/products/categories
func GetCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	values, err := db.ProductCollection.Distinct(ctx, "category", bson.M{"isActive": true})
	if err != nil {
		return utils.Internal("Failed to fetch categories", err)
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"categories": categoryNames(values)})
	return nil
}

func categoryNames(values []any) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names
}

// GetReviews handles GET /api/products/:id/reviews
func GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	id, err := utils.ObjectID(ps.ByName("id"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, err := GetActive(ctx, id)
	if err != nil {
		return err
	}
	reviews := product.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"reviews":    reviews,
		"rating":     product.Rating,
		"numReviews": product.NumReviews,
	})
	return nil
}
