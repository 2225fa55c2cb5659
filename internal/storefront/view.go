package storefront

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/healthybite/internal/domain/cart"
	"github.com/xenking/healthybite/internal/domain/catalog"
	"github.com/xenking/healthybite/internal/domain/checkout"
)

const maxBodySize = 1 << 16

const (
	msgInvalidBody      = "Invalid request body."
	msgServerError      = "Server error."
	msgProductNotFound  = "Product not found."
	msgInvalidSelection = "Invalid product selection."
	msgLoggedOut        = "Logged out."
	msgUnavailable      = "Service unavailable. Please try again later."
)

func writeRaw(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("msg", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeRaw(w, status, &e)
}

func writeLoginRequired(w http.ResponseWriter) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("msg", func(e *jx.Encoder) { e.Str(msgLoginRequired) })
		e.Field("redirect", func(e *jx.Encoder) { e.Str(loginPath) })
	})
	writeRaw(w, http.StatusUnauthorized, &e)
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeMsg(w, http.StatusInternalServerError, msgServerError)
}

// readBody reads the request body, answering 400 when it is unreadable.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidBody)
		return nil, false
	}
	return data, true
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

func encodeItem(e *jx.Encoder, it cart.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, it.Price) })
		e.Field("qty", func(e *jx.Encoder) { e.Int(it.Qty) })
		if it.Size != "" {
			e.Field("size", func(e *jx.Encoder) { e.Str(it.Size) })
		}
		if it.Image != "" {
			e.Field("image", func(e *jx.Encoder) { e.Str(it.Image) })
		}
		e.Field("lineTotal", func(e *jx.Encoder) { encodeDecimal(e, it.LineTotal()) })
	})
}

func encodeItems(e *jx.Encoder, items []cart.Item) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			encodeItem(e, it)
		}
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) { encodeItems(e, c.Items) })
		e.Field("totalQuantity", func(e *jx.Encoder) { e.Int(c.TotalQuantity) })
		e.Field("totalAmount", func(e *jx.Encoder) { encodeDecimal(e, c.TotalAmount) })
	})
}

func writeCart(w http.ResponseWriter, c *cart.Cart) {
	var e jx.Encoder
	encodeCart(&e, c)
	writeRaw(w, http.StatusOK, &e)
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(p.Kind)) })
	})
}

func encodeReceipt(e *jx.Encoder, rc *checkout.Receipt) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderDetails", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("orderId", func(e *jx.Encoder) { e.Str(rc.OrderID) })
				e.Field("customer", func(e *jx.Encoder) {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(rc.Customer.Name) })
						e.Field("email", func(e *jx.Encoder) { e.Str(rc.Customer.Email) })
						e.Field("phone", func(e *jx.Encoder) { e.Str(rc.Customer.Phone) })
					})
				})
				e.Field("items", func(e *jx.Encoder) { encodeItems(e, rc.Items) })
				e.Field("totalAmount", func(e *jx.Encoder) { encodeDecimal(e, rc.TotalAmount) })
			})
		})
	})
}

// addItemRequest is the body of POST /cart/items.
type addItemRequest struct {
	ProductID string
	Kind      catalog.Kind
	Size      string
	Quantity  int
}

// decode reads the request. A missing quantity means one unit.
func (a *addItemRequest) decode(data []byte) error {
	a.Quantity = 1
	return jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			a.ProductID, err = d.Str()
		case "kind":
			var v string
			v, err = d.Str()
			a.Kind = catalog.Kind(v)
		case "size":
			if d.Next() == jx.Null {
				return d.Null()
			}
			a.Size, err = d.Str()
		case "quantity":
			a.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
}
