package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type PartyKind string

const (
	PartyKindRequester PartyKind = "requester"
	PartyKindProvider  PartyKind = "provider"
)

// Party is a directory record for either side of an appointment. The engine
// only reads these to validate referential existence and to address
// notification intents; account management lives elsewhere.
type Party struct {
	bun.BaseModel `bun:"table:parties"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email"`
	Kind      PartyKind `bun:"kind,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (p *Party) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}
