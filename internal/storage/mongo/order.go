package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/healthybite/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

type orderItemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Qty       int                  `bson:"qty"`
	Image     string               `bson:"image"`
}

type orderDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	User        primitive.ObjectID   `bson:"user"`
	Items       []orderItemDoc       `bson:"items"`
	TotalAmount primitive.Decimal128 `bson:"totalAmount"`
	CreatedAt   time.Time            `bson:"createdAt"`
	Status      string               `bson:"status"`
}

func orderDocFrom(o *order.Order) (*orderDoc, error) {
	uid, err := primitive.ObjectIDFromHex(o.UserID)
	if err != nil {
		return nil, errors.Wrapf(order.ErrInvalidOrder, "user id %q", o.UserID)
	}
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, err
	}

	items := make([]orderItemDoc, len(o.Items))
	for i, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items[i] = orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Qty:       it.Qty,
			Image:     it.Image,
		}
	}

	return &orderDoc{
		User:        uid,
		Items:       items,
		TotalAmount: total,
		CreatedAt:   o.CreatedAt,
		Status:      o.Status,
	}, nil
}

func (d *orderDoc) toDomain() (order.Order, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return order.Order{}, err
	}
	items := make([]order.Item, len(d.Items))
	for i, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return order.Order{}, err
		}
		items[i] = order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     price,
			Qty:       it.Qty,
			Image:     it.Image,
		}
	}
	return order.Order{
		ID:          d.ID.Hex(),
		UserID:      d.User.Hex(),
		Items:       items,
		TotalAmount: total,
		CreatedAt:   d.CreatedAt.UTC(),
		Status:      d.Status,
	}, nil
}

// OrderRepository implements order.Repository on the orders collection.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository on db.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(OrdersCollection)}
}

// Create inserts o and sets its ID. The user id must be an ObjectID hex.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	doc, err := orderDocFrom(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert order")
	}
	o.ID = doc.ID.Hex()
	return nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []order.Order{}, nil
	}

	var out []order.Order
	err = r.each(ctx, bson.M{"user": uid}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}), func(o order.Order) error {
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []order.Order{}
	}
	return out, nil
}

// Each streams every order in creation order to fn. It stops at the first
// error returned by fn.
func (r *OrderRepository) Each(ctx context.Context, fn func(order.Order) error) error {
	return r.each(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}), fn)
}

func (r *OrderRepository) each(ctx context.Context, filter any, opts *options.FindOptions, fn func(order.Order) error) error {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return errors.Wrap(err, "find orders")
	}
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		var doc orderDoc
		if err := cur.Decode(&doc); err != nil {
			return errors.Wrap(err, "decode order")
		}
		o, err := doc.toDomain()
		if err != nil {
			return errors.Wrapf(err, "order %s", doc.ID.Hex())
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return errors.Wrap(err, "iterate orders")
	}
	return nil
}
