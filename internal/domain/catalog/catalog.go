// Package catalog holds the static meal and drink menus and turns a menu
// selection into a cart line.
package catalog

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/healthybite/internal/domain/cart"
)

var (
	// ErrNotFound is returned when a product id is not on the menu.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidSize is returned for a drink size other than small, medium or large.
	ErrInvalidSize = errors.New("invalid size")
	// ErrInvalidKind is returned for a kind other than meal or drink.
	ErrInvalidKind = errors.New("invalid product kind")
)

// Kind separates the two menus.
type Kind string

const (
	KindMeal  Kind = "meal"
	KindDrink Kind = "drink"
)

// CategoryAll matches every category in a Filter.
const CategoryAll = "All"

// Product is a menu entry.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	Kind        Kind
}

// Filter narrows a menu listing. Search is a case-insensitive substring of
// the product name; an empty Category or CategoryAll matches everything.
type Filter struct {
	Search   string
	Category string
}

func (f Filter) match(p Product) bool {
	if f.Category != "" && f.Category != CategoryAll && p.Category != f.Category {
		return false
	}
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search))
}

// Catalog is an immutable set of menus.
type Catalog struct {
	meals  []Product
	drinks []Product
}

// New returns a catalog with the given menus. Kind is set from the menu a
// product is passed in.
func New(meals, drinks []Product) *Catalog {
	c := &Catalog{
		meals:  make([]Product, len(meals)),
		drinks: make([]Product, len(drinks)),
	}
	for i, p := range meals {
		p.Kind = KindMeal
		c.meals[i] = p
	}
	for i, p := range drinks {
		p.Kind = KindDrink
		c.drinks[i] = p
	}
	return c
}

// Default returns the HealthyBite menu.
func Default() *Catalog {
	return New(
		[]Product{
			{
				ID:          "power-salad",
				Name:        "Power Salad Bowl",
				Description: "A mix of fresh greens, cherry tomatoes, quinoa, and avocado with lemon vinaigrette.",
				Price:       decimal.RequireFromString("1.9"),
				Image:       "meal1.png",
				Category:    "Salad",
			},
			{
				ID:          "avocado-toast",
				Name:        "Avocado Toast",
				Description: "Multigrain toast topped with avocado, cherry tomatoes, and chia seeds.",
				Price:       decimal.RequireFromString("1.5"),
				Image:       "meal2.png",
				Category:    "Toast",
			},
			{
				ID:          "protein-pasta",
				Name:        "Protein Pasta",
				Description: "Whole wheat pasta with sautéed veggies and olive oil basil sauce.",
				Price:       decimal.RequireFromString("2.0"),
				Image:       "meal3.png",
				Category:    "Pasta",
			},
		},
		[]Product{
			{
				ID:          "green-smoothie",
				Name:        "Green Glow Smoothie",
				Description: "Spinach, banana, apple, and coconut water.",
				Price:       decimal.RequireFromString("1.8"),
				Image:       "drink1.png",
				Category:    "Smoothie",
			},
			{
				ID:          "detox-juice",
				Name:        "Detox Juice",
				Description: "Carrot, cucumber, lemon, and mint.",
				Price:       decimal.RequireFromString("1.6"),
				Image:       "drink2.png",
				Category:    "Juice",
			},
			{
				ID:          "lemon-mint",
				Name:        "Classic Lemon Mint Water",
				Description: "Refreshing blend of lemon, mint, and cucumber slices.",
				Price:       decimal.RequireFromString("1.2"),
				Image:       "drink3.png",
				Category:    "Water",
			},
		},
	)
}

// Meals lists meals matching f in menu order.
func (c *Catalog) Meals(f Filter) []Product { return filter(c.meals, f) }

// Drinks lists drinks matching f in menu order. Prices are medium-size.
func (c *Catalog) Drinks(f Filter) []Product { return filter(c.drinks, f) }

func filter(ps []Product, f Filter) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the product with id from the menu of the given kind.
func (c *Catalog) Get(kind Kind, id string) (*Product, error) {
	var ps []Product
	switch kind {
	case KindMeal:
		ps = c.meals
	case KindDrink:
		ps = c.drinks
	default:
		return nil, errors.Wrapf(ErrInvalidKind, "%q", kind)
	}
	for i := range ps {
		if ps[i].ID == id {
			p := ps[i]
			return &p, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%s %q", kind, id)
}

// Selection is a customer's pick from a menu view.
type Selection struct {
	Kind      Kind
	ProductID string
	// Size applies to drinks only; empty means medium.
	Size     string
	Quantity int
}

// Line prices a selection and returns the cart request for it. Meals keep
// their product id. Drinks get the composite id "<product>-<size>" and a
// size-adjusted price, so each size is its own cart line. Quantity is
// bounded to [0, cart.MaxQty]; a zero quantity makes the add a no-op.
func (c *Catalog) Line(sel Selection) (cart.AddRequest, error) {
	p, err := c.Get(sel.Kind, sel.ProductID)
	if err != nil {
		return cart.AddRequest{}, err
	}

	req := cart.AddRequest{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: BoundQuantity(sel.Quantity),
		Image:    p.Image,
	}
	if p.Kind != KindDrink {
		return req, nil
	}

	size, err := ParseSize(sel.Size)
	if err != nil {
		return cart.AddRequest{}, err
	}
	req.ID = p.ID + "-" + string(size)
	req.Size = string(size)
	req.Price = size.Apply(p.Price)
	return req, nil
}

// BoundQuantity limits a per-view requested quantity to [0, cart.MaxQty].
func BoundQuantity(q int) int {
	return max(0, min(q, cart.MaxQty))
}
