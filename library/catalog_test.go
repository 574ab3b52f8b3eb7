package library_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/library-engine/library"
	"github.com/warp/library-engine/library/store/memory"
)

func newTestCatalog(books ...library.Book) (*library.Catalog, *memory.Store) {
	store := memory.New()
	store.Seed(library.State{Books: books})
	return library.NewCatalog(store), store
}

func TestCatalogAdd_AssignsNextID(t *testing.T) {
	catalog, _ := newTestCatalog(
		library.Book{ID: 2, Title: "Emma", Author: "Jane Austen", Available: 1},
		library.Book{ID: 7, Title: "Dune", Author: "Frank Herbert", Available: 1},
	)

	added, err := catalog.Add(context.Background(), "Persuasion", "Jane Austen", 2)
	require.NoError(t, err)

	assert.Equal(t, 8, added.ID, "id is max(existing)+1")
	assert.Equal(t, 2, added.Available)
}

func TestCatalogAdd_EmptyCatalogStartsAtOne(t *testing.T) {
	catalog, _ := newTestCatalog()

	added, err := catalog.Add(context.Background(), "Dune", "Frank Herbert", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, added.ID)
	assert.Equal(t, 1, added.Available, "available defaults to 1")
}

func TestCatalogAdd_Validation(t *testing.T) {
	catalog, _ := newTestCatalog()
	ctx := context.Background()

	_, err := catalog.Add(ctx, "", "Frank Herbert", 1)
	assert.ErrorIs(t, err, library.ErrValidation)

	_, err = catalog.Add(ctx, "Dune", "", 1)
	assert.ErrorIs(t, err, library.ErrValidation)

	_, err = catalog.Add(ctx, "Dune", "Frank Herbert", -1)
	assert.ErrorIs(t, err, library.ErrValidation)

	books, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books, "failed adds persist nothing")
}

func TestCatalogRemove(t *testing.T) {
	catalog, _ := newTestCatalog(
		library.Book{ID: 1, Title: "Emma", Author: "Jane Austen", Available: 1},
		library.Book{ID: 2, Title: "Dune", Author: "Frank Herbert", Available: 1},
	)
	ctx := context.Background()

	require.NoError(t, catalog.Remove(ctx, 1))

	books, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 2, books[0].ID)
}

func TestCatalogRemove_MissingIDIsSuccess(t *testing.T) {
	// Deletion is idempotent: an unknown id succeeds and changes nothing.
	catalog, _ := newTestCatalog(
		library.Book{ID: 1, Title: "Emma", Author: "Jane Austen", Available: 1},
	)
	ctx := context.Background()

	require.NoError(t, catalog.Remove(ctx, 99))

	books, err := catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}
