package account

import (
	"context"

	"github.com/stretchr/testify/suite"

	"signup/internal/signup/models"
	"signup/pkg/platform/sentinel"
)

type contractStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Write(ctx context.Context, key string, account models.Account) error
	CreateIfAbsent(ctx context.Context, key string, account models.Account) error
	FindByID(ctx context.Context, key string) (models.Account, error)
}

// runStoreContract exercises the behavior every backend must share. Each
// backend suite calls it with an empty store.
func runStoreContract(s *suite.Suite, newStore func() contractStore) {
	ctx := context.Background()

	s.Run("missing key does not exist", func() {
		store := newStore()
		exists, err := store.Exists(ctx, "alice")
		s.Require().NoError(err)
		s.False(exists)

		_, err = store.FindByID(ctx, "alice")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("write then exists", func() {
		store := newStore()
		account := models.Account{ID: "alice", Password: "p1", Name: "Alice"}
		s.Require().NoError(store.Write(ctx, "alice", account))

		exists, err := store.Exists(ctx, "alice")
		s.Require().NoError(err)
		s.True(exists)

		found, err := store.FindByID(ctx, "alice")
		s.Require().NoError(err)
		s.Equal(account, found)
	})

	s.Run("write overwrites unconditionally", func() {
		store := newStore()
		s.Require().NoError(store.Write(ctx, "bob", models.Account{ID: "bob", Password: "old", Name: "Bob"}))
		s.Require().NoError(store.Write(ctx, "bob", models.Account{ID: "bob", Password: "new", Name: "Robert"}))

		found, err := store.FindByID(ctx, "bob")
		s.Require().NoError(err)
		s.Equal("new", found.Password)
		s.Equal("Robert", found.Name)
	})

	s.Run("create if absent refuses taken key", func() {
		store := newStore()
		s.Require().NoError(store.CreateIfAbsent(ctx, "carol", models.Account{ID: "carol", Password: "first", Name: "Carol"}))

		err := store.CreateIfAbsent(ctx, "carol", models.Account{ID: "carol", Password: "second", Name: "Imposter"})
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		found, err := store.FindByID(ctx, "carol")
		s.Require().NoError(err)
		s.Equal("first", found.Password)
	})
}
