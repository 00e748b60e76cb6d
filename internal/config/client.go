package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ClientConfig struct {
	SessionWSURL string `env:"SESSION_WS_URL" envDefault:"ws://localhost:8080/ws"`
	ProfileDSN   string `env:"PROFILE_DSN"`
	StatusAddr   string `env:"STATUS_ADDR" envDefault:":8091"`

	PlayerName string `env:"PLAYER_NAME" envDefault:"guest"`
	RoomID     string `env:"ROOM_ID"`
	MapType    string `env:"MAP_TYPE" envDefault:"plaza"`

	BalanceDriftThreshold  int64   `env:"BALANCE_DRIFT_THRESHOLD" envDefault:"100"`
	PositionNoiseRadius    float64 `env:"POSITION_NOISE_RADIUS" envDefault:"16"`
	PositionTeleportRadius float64 `env:"POSITION_TELEPORT_RADIUS" envDefault:"64"`

	SlotsRevealDelay  time.Duration `env:"SLOTS_REVEAL_DELAY" envDefault:"1800ms"`
	LootboxWriteTries int           `env:"LOOTBOX_WRITE_TRIES" envDefault:"3"`

	ReconnectMaxInterval time.Duration `env:"RECONNECT_MAX_INTERVAL" envDefault:"30s"`
}

func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	err := env.Parse(&cfg)
	return cfg, err
}
