package profile

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres backs the profile contract with a shared profiles table. Inventory
// and equipment are stored as text arrays; writes are last-writer-wins, which
// is why the reconciler re-reads before every competing write.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{Pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

func (s *Postgres) ReadProfile(ctx context.Context, playerID string) (Profile, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT player_id, balance, inventory, equipment, secondary_currency
		 FROM profiles WHERE player_id = $1`, playerID)
	var p Profile
	err := row.Scan(&p.PlayerID, &p.Balance, &p.Inventory, &p.Equipment, &p.SecondaryCurrency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Postgres) WriteBalance(ctx context.Context, playerID string, value int64) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE profiles SET balance = $2, updated_at = now() WHERE player_id = $1`,
		playerID, value)
	return err
}

func (s *Postgres) WriteInventory(ctx context.Context, playerID string, items []string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE profiles SET inventory = $2, updated_at = now() WHERE player_id = $1`,
		playerID, items)
	return err
}

func (s *Postgres) WriteEquipment(ctx context.Context, playerID string, items []string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE profiles SET equipment = $2, updated_at = now() WHERE player_id = $1`,
		playerID, items)
	return err
}
