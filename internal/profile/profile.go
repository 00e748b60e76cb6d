// Package profile is the narrow contract to the persisted profile store. The
// store is eventually consistent and independently written by other clients
// and the session server; callers re-read immediately before competing writes.
package profile

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("profile_not_found")

type Profile struct {
	PlayerID          string   `json:"player_id"`
	Balance           int64    `json:"balance"`
	Inventory         []string `json:"inventory"`
	Equipment         []string `json:"equipment"`
	SecondaryCurrency int64    `json:"secondary_currency"`
}

type Store interface {
	ReadProfile(ctx context.Context, playerID string) (Profile, error)
	WriteBalance(ctx context.Context, playerID string, value int64) error
	WriteInventory(ctx context.Context, playerID string, items []string) error
	WriteEquipment(ctx context.Context, playerID string, items []string) error
	Ping(ctx context.Context) error
}
