package routes

import (
	"net/http"

	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

// httprouter cannot register a static segment and a parameter at the same
// depth, so /api/products/category/:category and /api/products/:id/reviews
// share one pattern. A dispatcher inspects the first parameter and forwards
// to the right handler with the parameter names it expects.

// byName routes on the value of the single parameter key. Values not in
// named fall through to fallback.
func byName(key string, named map[string]httprouter.Handle, fallback httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if h, ok := named[ps.ByName(key)]; ok {
			h(w, r, ps)
			return
		}
		fallback(w, r, ps)
	}
}

// staticPrefix maps "/<word>/:value" onto a handler reading value as param.
type staticPrefix struct {
	param   string
	handler httprouter.Handle
}

// bySegments routes a two-parameter pattern. When the first segment matches
// a key in prefixes, the second segment is renamed to that prefix's param.
// Otherwise the first segment is the resource id and the second selects one
// of subs.
func bySegments(first, second string, prefixes map[string]staticPrefix, subs map[string]httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		head, tail := ps.ByName(first), ps.ByName(second)
		if p, ok := prefixes[head]; ok {
			p.handler(w, r, httprouter.Params{{Key: p.param, Value: tail}})
			return
		}
		if h, ok := subs[tail]; ok {
			h(w, r, httprouter.Params{{Key: "id", Value: head}})
			return
		}
		notFound(w, r)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	utils.RespondWithError(w, http.StatusNotFound, "Route not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
