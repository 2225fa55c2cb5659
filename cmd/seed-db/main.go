package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/healthybite/db"
	"github.com/xenking/healthybite/internal/domain/user"
	"github.com/xenking/healthybite/internal/storage/mongo"
)

type userJSON struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Gender   string `json:"gender"`
	Pic      string `json:"pic"`
}

func main() {
	var (
		mongoURI  string
		database  string
		usersFile string
	)

	flag.StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGODB_URI env)")
	flag.StringVar(&database, "mongo-database", "healthybite", "MongoDB database name")
	flag.StringVar(&usersFile, "users-file", "", "path to users JSON file (default: embedded demo users)")
	flag.Parse()

	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}
	if mongoURI == "" {
		slog.Error("MongoDB URI is required: set --mongo-uri or MONGODB_URI")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, mongoURI, database, usersFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, mongoURI, database, usersFile string) error {
	data := db.SeedUsers
	if usersFile != "" {
		var err error
		if data, err = os.ReadFile(usersFile); err != nil {
			return errors.Wrap(err, "read users file")
		}
	}

	var users []userJSON
	if err := json.Unmarshal(data, &users); err != nil {
		return errors.Wrap(err, "parse users")
	}

	slog.Info("connecting to database", slog.String("database", database))
	mdb, err := mongo.Connect(ctx, mongoURI, database)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mdb.Client().Disconnect(disconnectCtx)
	}()

	if err := mongo.EnsureIndexes(ctx, mdb); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	svc := user.NewService(mongo.NewUserRepository(mdb))
	var created, skipped int
	for _, u := range users {
		_, err := svc.Register(ctx, user.RegisterRequest{
			Name:     u.Name,
			Email:    u.Email,
			Phone:    u.Phone,
			Password: u.Password,
			Pic:      u.Pic,
			Gender:   u.Gender,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, user.ErrEmailTaken):
			skipped++
			slog.Info("user exists, skipping", slog.String("email", u.Email))
		default:
			return errors.Wrapf(err, "register %s", u.Email)
		}
	}

	slog.Info("users seeded", slog.Int("created", created), slog.Int("skipped", skipped))
	return nil
}
