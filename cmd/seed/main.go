package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/store/postgres"
)

const (
	providerCount  = 20
	requesterCount = 200
	bookingsPerDay = 6
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	dsn := os.Getenv("CAREBOOK_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		log.Fatal("CAREBOOK_DATABASE_URL is required")
	}

	db, err := postgres.Open(dsn, postgres.PoolConfig{MaxOpenConns: 5})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer func() { _ = postgres.Close(db) }()

	gofakeit.Seed(time.Now().UnixNano())

	ctx := context.Background()

	providers, err := seedParties(ctx, db, domain.PartyKindProvider, providerCount)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	requesters, err := seedParties(ctx, db, domain.PartyKindRequester, requesterCount)
	if err != nil {
		log.Fatalf("seed requesters: %v", err)
	}

	if err := seedAppointments(ctx, db, providers, requesters); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedParties(ctx context.Context, db *bun.DB, kind domain.PartyKind, count int) ([]domain.Party, error) {
	log.Printf("seeding %d %s parties", count, kind)

	out := make([]domain.Party, 0, count)
	for i := 0; i < count; i++ {
		p := domain.Party{
			ID:    fmt.Sprintf("%s-%04d", kind, i+1),
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
			Kind:  kind,
		}
		if _, err := db.NewInsert().Model(&p).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func seedAppointments(ctx context.Context, db *bun.DB, providers, requesters []domain.Party) error {
	repo := postgres.NewAppointmentRepo(db)

	// Next Monday, so seeded bookings land on working days.
	day := time.Now().UTC().Truncate(24 * time.Hour)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}

	created := 0
	for _, provider := range providers {
		for i := 0; i < bookingsPerDay; i++ {
			start := day.Add(time.Duration(9+i) * time.Hour)
			requester := requesters[gofakeit.Number(0, len(requesters)-1)]

			appt := domain.Appointment{
				RequesterID: requester.ID,
				ProviderID:  provider.ID,
				StartTime:   start,
				EndTime:     start.Add(30 * time.Minute),
				Status:      domain.StatusScheduled,
				Notes:       gofakeit.Sentence(6),
			}
			if _, err := repo.Create(ctx, appt); err != nil {
				return err
			}
			created++
		}
	}

	log.Printf("seeded %d appointments starting %s", created, day.Format("2006-01-02"))
	return nil
}
