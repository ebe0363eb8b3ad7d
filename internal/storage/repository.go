package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateItem(ctx context.Context, in Item) error
	GetItem(ctx context.Context, id string) (Item, error)
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, filter ItemListFilter) ([]Item, error)

	// ReplaceItems swaps the whole stored calendar for items in one
	// transaction.
	ReplaceItems(ctx context.Context, items []Item) error
}
