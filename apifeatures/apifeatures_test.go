package apifeatures

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSearch(t *testing.T) {
	params := url.Values{"keyword": {"Shirt (XL)"}}
	f := New(bson.M{"isActive": true}, params).Search("name", "description")

	assert.Equal(t, true, f.Query["isActive"])
	or, ok := f.Query["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{"name": bson.M{"$regex": `Shirt \(XL\)`, "$options": "i"}}, or[0])
}

func TestSearchWithoutKeyword(t *testing.T) {
	f := New(nil, url.Values{}).Search("name")
	assert.Empty(t, f.Query)
}

func TestFilter(t *testing.T) {
	params := url.Values{
		"category":   {"shoes"},
		"price[gte]": {"100"},
		"price[lt]":  {"499.5"},
		"isFeatured": {"true"},
		"rating[ne]": {"3"},
		"page":       {"2"},
		"sort":       {"price"},
		"keyword":    {"run"},
		"limit":      {"5"},
	}
	f := New(bson.M{"isActive": true}, params).Filter()

	assert.Equal(t, bson.M{
		"isActive":   true,
		"category":   "shoes",
		"price":      bson.M{"$gte": int64(100), "$lt": 499.5},
		"isFeatured": true,
	}, f.Query)
}

func TestFilterIgnoresOperatorInjection(t *testing.T) {
	f := New(nil, url.Values{"$where": {"1"}}).Filter()
	assert.Empty(t, f.Query)
}

func TestFilterKeepsBaseFields(t *testing.T) {
	base := bson.M{
		"isActive": true,
		"category": bson.M{"$regex": "^shoes$", "$options": "i"},
	}
	params := url.Values{
		"isActive":      {"false"},
		"category[gte]": {"a"},
		"category":      {"hats"},
		"brand":         {"acme"},
	}
	f := New(base, params).Filter()

	assert.Equal(t, true, f.Query["isActive"])
	assert.Equal(t, bson.M{"$regex": "^shoes$", "$options": "i"}, f.Query["category"])
	assert.Equal(t, "acme", f.Query["brand"])
	// the caller's map is left alone
	assert.Equal(t, bson.M{"$regex": "^shoes$", "$options": "i"}, base["category"])
}

func TestFilterObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	f := New(nil, url.Values{"userId": {id.Hex()}, "orderNumber": {"ORD12345"}}).Filter()

	assert.Equal(t, id, f.Query["userId"])
	assert.Equal(t, "ORD12345", f.Query["orderNumber"])
}

func TestSort(t *testing.T) {
	f := New(nil, url.Values{"sort": {"price,-rating"}}).Sort()
	assert.Equal(t, bson.D{{Key: "price", Value: 1}, {Key: "rating", Value: -1}}, f.Options.Sort)

	f = New(nil, url.Values{}).Sort()
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, f.Options.Sort)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		page     string
		wantPage int64
		wantSkip int64
	}{
		{"", 1, 0},
		{"1", 1, 0},
		{"3", 3, 20},
		{"0", 1, 0},
		{"-4", 1, 0},
		{"abc", 1, 0},
		{"1000", 1000, 9990},
	}
	for _, tt := range tests {
		f := New(nil, url.Values{"page": {tt.page}}).Paginate(10)
		assert.Equal(t, tt.wantPage, f.Page, "page=%q", tt.page)
		require.NotNil(t, f.Options.Skip)
		assert.Equal(t, tt.wantSkip, *f.Options.Skip, "page=%q", tt.page)
		assert.Equal(t, int64(10), *f.Options.Limit)
	}
}

func TestChaining(t *testing.T) {
	params := url.Values{"keyword": {"tee"}, "category": {"men"}, "page": {"2"}}
	f := New(bson.M{"isActive": true}, params).Search("name").Filter().Sort().Paginate(10)

	assert.Contains(t, f.Query, "$or")
	assert.Equal(t, "men", f.Query["category"])
	assert.Equal(t, int64(10), *f.Options.Skip)
}

func TestTotalPages(t *testing.T) {
	f := New(nil, url.Values{}).Paginate(10)
	assert.Equal(t, int64(0), f.TotalPages(0))
	assert.Equal(t, int64(1), f.TotalPages(10))
	assert.Equal(t, int64(3), f.TotalPages(21))
}
