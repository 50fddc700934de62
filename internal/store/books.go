package store

import (
	"context"
	"encoding/json/v2"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lecternapp/lectern-server/internal/domain"
	"github.com/lecternapp/lectern-server/internal/errors"
)

// CreateBook stores a new book. Fails if the ID is already taken.
func (s *Store) CreateBook(ctx context.Context, book domain.Book) error {
	key := buildKey(bookPrefix, book.ID)
	defer releaseKey(key)

	taken, err := s.exists(key)
	if err != nil {
		return err
	}
	if taken {
		return errors.Conflict("book already exists: " + book.ID)
	}

	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	return s.set(key, book)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	key := buildKey(bookPrefix, bookID)
	defer releaseKey(key)

	var book domain.Book
	if err := s.get(key, &book); err != nil {
		return domain.Book{}, mapNotFound(err, "book", bookID)
	}
	return book, nil
}

// UpdateBook replaces a stored book.
func (s *Store) UpdateBook(ctx context.Context, book domain.Book) error {
	key := buildKey(bookPrefix, book.ID)
	defer releaseKey(key)

	taken, err := s.exists(key)
	if err != nil {
		return err
	}
	if !taken {
		return errors.NotFoundf("book %s not found", book.ID)
	}

	book.UpdatedAt = time.Now().UTC()
	return s.set(key, book)
}

// ListBooks returns every book, in key order.
func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var book domain.Book
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return err
			}
			books = append(books, book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// DeleteBook removes a book and all of its chapters, texts, and cached audio.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	chapters, err := s.ListChapters(ctx, bookID)
	if err != nil {
		return err
	}
	for _, ch := range chapters {
		if err := s.DeleteChapter(ctx, bookID, ch.ID); err != nil {
			return err
		}
	}

	key := buildKey(bookPrefix, bookID)
	defer releaseKey(key)
	return s.delete(key)
}
