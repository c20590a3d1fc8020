package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyConfig configures a ValkeyAlertLog.
type ValkeyConfig struct {
	Addr     string
	Password string
	TLS      bool
	// TTL is how long an alerted suggestion stays suppressed.
	TTL time.Duration
}

// ValkeyAlertLog is an AlertLog shared across processes and runs.
type ValkeyAlertLog struct {
	client valkey.Client
	ttl    time.Duration
	prefix string
}

// NewValkeyAlertLog connects and pings the server.
func NewValkeyAlertLog(cfg ValkeyConfig) (*ValkeyAlertLog, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Addr},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("valkey: create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey: ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ValkeyAlertLog{client: client, ttl: ttl, prefix: "suggestguard:alerted:"}, nil
}

func (v *ValkeyAlertLog) Seen(ctx context.Context, key string) (bool, error) {
	n, err := v.client.Do(ctx, v.client.B().Exists().Key(v.prefix+key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey: exists: %w", err)
	}
	return n > 0, nil
}

func (v *ValkeyAlertLog) Mark(ctx context.Context, key string) error {
	cmd := v.client.B().Set().Key(v.prefix + key).Value("1").ExSeconds(int64(v.ttl / time.Second)).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey: set: %w", err)
	}
	return nil
}

func (v *ValkeyAlertLog) Close() {
	v.client.Close()
}
