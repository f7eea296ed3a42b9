package bus

import (
	"fmt"

	"github.com/ZakFarmer/rooklift-ws-service/internal/config"
)

// Open builds the publisher selected by cfg.Driver.
func Open(cfg config.BusConfig) (Publisher, error) {
	switch cfg.Driver {
	case "redis":
		r, err := NewRedis(cfg.RedisURL, cfg.PublishTimeout)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "nats":
		n, err := NewNATS(cfg.NATSURL, cfg.PublishTimeout)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
	}
}
