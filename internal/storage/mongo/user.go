package mongo

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/healthybite/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

type userDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Phone    string             `bson:"phone"`
	Password string             `bson:"password"`
	Pic      string             `bson:"pic"`
	Gender   string             `bson:"gender"`
}

func (d *userDoc) toDomain() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		Phone:        d.Phone,
		PasswordHash: d.Password,
		Pic:          d.Pic,
		Gender:       d.Gender,
	}
}

func userDocFrom(u *user.User) userDoc {
	return userDoc{
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Password: u.PasswordHash,
		Pic:      u.Pic,
		Gender:   u.Gender,
	}
}

// UserRepository implements user.Repository on the users collection.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns a UserRepository on db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// Create inserts u and sets its ID.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	doc := userDocFrom(u)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "insert user")
	}
	u.ID = doc.ID.Hex()
	return nil
}

// GetByID finds a user by hex ObjectID. Malformed ids are not found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail finds a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	u := doc.toDomain()
	return &u, nil
}

// List returns all users in insertion order.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}

	out := make([]user.User, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

// Update replaces the stored profile of u.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return user.ErrNotFound
	}
	doc := userDocFrom(u)
	doc.ID = oid

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return errors.Wrap(err, "replace user")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Delete removes the user with id. Unknown and malformed ids are ignored.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return errors.Wrap(err, "delete user")
	}
	return nil
}
