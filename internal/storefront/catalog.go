package storefront

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/healthybite/internal/domain/catalog"
)

var drinkSizes = []catalog.Size{catalog.SizeSmall, catalog.SizeMedium, catalog.SizeLarge}

func filterFrom(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	return catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
}

// ListMeals handles GET /catalog/meals.
func (s *Server) ListMeals(w http.ResponseWriter, r *http.Request) {
	writeProducts(w, s.catalog.Meals(filterFrom(r)), nil)
}

// ListDrinks handles GET /catalog/drinks. The response lists the sizes a
// drink can be ordered in.
func (s *Server) ListDrinks(w http.ResponseWriter, r *http.Request) {
	writeProducts(w, s.catalog.Drinks(filterFrom(r)), drinkSizes)
}

func writeProducts(w http.ResponseWriter, products []catalog.Product, sizes []catalog.Size) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range products {
					encodeProduct(e, p)
				}
			})
		})
		if len(sizes) > 0 {
			e.Field("sizes", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, sz := range sizes {
						e.Str(string(sz))
					}
				})
			})
		}
	})
	writeRaw(w, http.StatusOK, &e)
}
