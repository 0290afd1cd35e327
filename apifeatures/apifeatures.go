// Package apifeatures builds MongoDB find filters and options from list
// query parameters: keyword search, field filters, sorting and pagination.
package apifeatures

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// reserved keys never become filter constraints
var reserved = map[string]bool{
	"page":    true,
	"sort":    true,
	"limit":   true,
	"fields":  true,
	"keyword": true,
}

var operators = map[string]string{
	"gt":  "$gt",
	"gte": "$gte",
	"lt":  "$lt",
	"lte": "$lte",
}

// APIFeatures accumulates a query filter and find options. Each step returns the
// same value so calls chain.
type APIFeatures struct {
	Query    bson.M
	Options  *options.FindOptions
	Page     int64
	PageSize int64

	params url.Values
	fixed  map[string]bool
}

// New starts from a base filter (e.g. {"isActive": true}). Fields the base
// sets cannot be overridden or extended by query parameters.
func New(base bson.M, params url.Values) *APIFeatures {
	filter := bson.M{}
	fixed := make(map[string]bool, len(base))
	for k, v := range base {
		filter[k] = v
		fixed[k] = true
	}
	return &APIFeatures{
		Query:   filter,
		Options: options.Find(),
		Page:    1,
		params:  params,
		fixed:   fixed,
	}
}

// Search restricts results to documents where any of fields contains the
// keyword parameter, case-insensitively.
func (f *APIFeatures) Search(fields ...string) *APIFeatures {
	keyword := strings.TrimSpace(f.params.Get("keyword"))
	if keyword == "" || len(fields) == 0 {
		return f
	}
	pattern := bson.M{"$regex": regexp.QuoteMeta(keyword), "$options": "i"}
	or := make(bson.A, 0, len(fields))
	for _, field := range fields {
		or = append(or, bson.M{field: pattern})
	}
	f.Query["$or"] = or
	return f
}

// Filter turns the remaining parameters into constraints. A key of the
// form "price[gte]" becomes {"price": {"$gte": value}}; anything else is an
// equality match. Unknown bracket operators are ignored.
func (f *APIFeatures) Filter() *APIFeatures {
	for key, values := range f.params {
		if reserved[key] || len(values) == 0 {
			continue
		}
		field, op, hasOp := splitOperator(key)
		if field == "" || reserved[field] || f.fixed[field] || strings.HasPrefix(field, "$") {
			continue
		}
		value := coerce(values[0])

		if !hasOp {
			f.Query[field] = value
			continue
		}
		mongoOp, ok := operators[op]
		if !ok {
			continue
		}
		cond, _ := f.Query[field].(bson.M)
		if cond == nil {
			cond = bson.M{}
		}
		cond[mongoOp] = value
		f.Query[field] = cond
	}
	return f
}

// Sort applies "sort=a,-b"; the default is newest first.
func (f *APIFeatures) Sort() *APIFeatures {
	f.Options.SetSort(ParseSort(f.params.Get("sort")))
	return f
}

// Paginate applies skip/limit for the requested 1-based page. Pages past the
// end simply return nothing.
func (f *APIFeatures) Paginate(pageSize int64) *APIFeatures {
	page, err := strconv.ParseInt(f.params.Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	f.Page = page
	f.PageSize = pageSize
	f.Options.SetSkip((page - 1) * pageSize).SetLimit(pageSize)
	return f
}

// TotalPages is the page count for total matching documents.
func (f *APIFeatures) TotalPages(total int64) int64 {
	if f.PageSize <= 0 {
		return 1
	}
	return (total + f.PageSize - 1) / f.PageSize
}

// ParseSort converts a comma separated sort parameter into a sort document.
func ParseSort(raw string) bson.D {
	var sort bson.D
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		} else if strings.HasPrefix(field, "+") {
			field = field[1:]
		}
		if field == "" || strings.HasPrefix(field, "$") {
			continue
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if len(sort) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return sort
}

func splitOperator(key string) (field, op string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

// coerce types a raw parameter. 24-character hex strings become ObjectIDs
// so reference fields like userId can be matched.
func coerce(raw string) any {
	if len(raw) == 24 {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			return id
		}
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
