// Package cart implements the per-session shopping cart: an ordered set of
// line items keyed by id with totals derived from the items after every
// mutation.
package cart

import (
	"github.com/shopspring/decimal"
)

// Quantity bounds for a single line item.
const (
	MinQty = 1
	MaxQty = 10
)

// Item is one product/size combination and its quantity in the cart.
type Item struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Size  string          `json:"size,omitempty"`
	Image string          `json:"image,omitempty"`
	Qty   int             `json:"qty"`
}

// LineTotal returns Price * Qty.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// AddRequest describes an add-to-cart action. Quantity is the requested
// amount, not the resulting line quantity.
type AddRequest struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Size     string
	Image    string
}

// Add returns an AddRequest for a single unit, the default add-to-cart action.
func Add(id, name string, price decimal.Decimal) AddRequest {
	return AddRequest{ID: id, Name: name, Price: price, Quantity: 1}
}

// Cart is the cart aggregate. The zero value is an empty cart.
//
// Items keep first-added order; merging into an existing line never
// reorders. TotalQuantity and TotalAmount are recomputed from Items at the
// end of every mutating operation.
type Cart struct {
	Items         []Item          `json:"items"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{Items: []Item{}}
}

// Len returns the number of distinct line items.
func (c *Cart) Len() int { return len(c.Items) }

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Get returns the line item with the given id.
func (c *Cart) Get(id string) (Item, bool) {
	if i := c.index(id); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

// AddItem merges req into the cart. A non-positive Quantity is ignored.
// An existing line gains Quantity units, clamped to MaxQty, and picks up
// the image if it had none; otherwise a new line is appended.
func (c *Cart) AddItem(req AddRequest) *Cart {
	if req.Quantity <= 0 {
		return c
	}

	if i := c.index(req.ID); i >= 0 {
		existing := &c.Items[i]
		existing.Qty = min(existing.Qty+req.Quantity, MaxQty)
		if existing.Image == "" && req.Image != "" {
			existing.Image = req.Image
		}
	} else {
		c.Items = append(c.Items, Item{
			ID:    req.ID,
			Name:  req.Name,
			Price: req.Price,
			Size:  req.Size,
			Image: req.Image,
			Qty:   min(req.Quantity, MaxQty),
		})
	}

	c.recalc()
	return c
}

// IncreaseQty adds one unit to the line with the given id unless it is
// already at MaxQty. Unknown ids are ignored.
func (c *Cart) IncreaseQty(id string) *Cart {
	if i := c.index(id); i >= 0 && c.Items[i].Qty < MaxQty {
		c.Items[i].Qty++
	}
	c.recalc()
	return c
}

// DecreaseQty removes one unit from the line with the given id. A line at
// MinQty is removed entirely. Unknown ids are ignored.
func (c *Cart) DecreaseQty(id string) *Cart {
	i := c.index(id)
	if i < 0 {
		return c
	}

	if c.Items[i].Qty > MinQty {
		c.Items[i].Qty--
	} else {
		c.removeAt(i)
	}
	c.recalc()
	return c
}

// RemoveItem drops the line with the given id if present.
func (c *Cart) RemoveItem(id string) *Cart {
	if i := c.index(id); i >= 0 {
		c.removeAt(i)
	}
	c.recalc()
	return c
}

// Clear empties the cart and zeroes both totals.
func (c *Cart) Clear() *Cart {
	c.Items = []Item{}
	c.TotalQuantity = 0
	c.TotalAmount = decimal.Zero
	return c
}

// Settle removes the ordered lines from the cart: each line loses the
// quantity that was ordered and is dropped when nothing is left. Lines and
// units added after the order snapshot was taken stay in the cart.
func (c *Cart) Settle(ordered []Item) *Cart {
	for _, o := range ordered {
		i := c.index(o.ID)
		if i < 0 {
			continue
		}
		if c.Items[i].Qty > o.Qty {
			c.Items[i].Qty -= o.Qty
		} else {
			c.removeAt(i)
		}
	}
	c.recalc()
	return c
}

// Snapshot returns a deep copy of the cart.
func (c *Cart) Snapshot() *Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return &Cart{
		Items:         items,
		TotalQuantity: c.TotalQuantity,
		TotalAmount:   c.TotalAmount,
	}
}

// Normalize repairs a cart decoded from storage: lines outside the
// quantity bounds are clamped or dropped, duplicate ids are merged and the
// totals are recomputed.
func (c *Cart) Normalize() *Cart {
	items := c.Items
	c.Items = make([]Item, 0, len(items))
	for _, it := range items {
		if it.Qty < MinQty {
			continue
		}
		c.AddItem(AddRequest{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Qty,
			Size:     it.Size,
			Image:    it.Image,
		})
	}
	c.recalc()
	return c
}

func (c *Cart) index(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// recalc derives the totals from the full item collection.
func (c *Cart) recalc() {
	qty := 0
	amount := decimal.Zero
	for _, it := range c.Items {
		qty += it.Qty
		amount = amount.Add(it.LineTotal())
	}
	c.TotalQuantity = qty
	c.TotalAmount = amount
}
