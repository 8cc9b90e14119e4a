package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store"
)

// PartyRepo backs the PartyDirectory interface with the parties table. In
// deployments where the directory is a separate system this is replaced by a
// client adapter; the engine only sees the interface.
type PartyRepo struct {
	db *bun.DB
}

func NewPartyRepo(db *bun.DB) *PartyRepo {
	return &PartyRepo{db: db}
}

func (r *PartyRepo) Resolve(ctx context.Context, id string) (domain.Party, error) {
	var p domain.Party
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Party{}, store.ErrPartyNotFound
		}
		return domain.Party{}, err
	}
	return p, nil
}
