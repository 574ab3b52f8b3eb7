/*
catalog.go - CRUD over the Books collection

PURPOSE:
  Listing, adding and removing catalog entries. Removal is idempotent:
  deleting an id that does not exist is reported as success and leaves
  the collection unchanged.

SEE ALSO:
  - workflow.go: Mutates Book.Available at approval time
*/
package library

import "context"

// Catalog manages the Books collection.
type Catalog struct {
	store Store
}

// NewCatalog creates a catalog over the given store.
func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// List returns every book in the catalog.
func (c *Catalog) List(ctx context.Context) ([]Book, error) {
	return c.store.Books(ctx)
}

// Add appends a new book. Title and author are required; available
// defaults to 1 when zero and must not be negative. The new id is
// max(existing)+1, or 1 for an empty catalog.
func (c *Catalog) Add(ctx context.Context, title, author string, available int) (Book, error) {
	if title == "" {
		return Book{}, &ValidationError{Field: "title"}
	}
	if author == "" {
		return Book{}, &ValidationError{Field: "author"}
	}
	if available < 0 {
		return Book{}, &ValidationError{Field: "available", Reason: "must not be negative"}
	}
	if available == 0 {
		available = 1
	}

	var book Book
	err := c.store.Mutate(ctx, func(s *State) error {
		book = Book{
			ID:        nextID(s.Books, func(b Book) int { return b.ID }),
			Title:     title,
			Author:    author,
			Available: available,
		}
		s.Books = append(s.Books, book)
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// Remove deletes the book with the given id if present. A missing id is
// a no-op success.
func (c *Catalog) Remove(ctx context.Context, id int) error {
	return c.store.Mutate(ctx, func(s *State) error {
		kept := s.Books[:0]
		for _, b := range s.Books {
			if b.ID != id {
				kept = append(kept, b)
			}
		}
		s.Books = kept
		return nil
	})
}
