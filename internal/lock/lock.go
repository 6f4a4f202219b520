// Package lock serializes imports of the same company across processes.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-move-import-service/internal/models"
	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"
	"golang-move-import-service/pkg/validation"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Release frees a lock obtained by Acquire
type Release func(ctx context.Context) error

// Locker hands out one import lock per company
type Locker interface {
	Acquire(ctx context.Context, company models.ID) (Release, error)
}

// Config holds the redis lock settings
type Config struct {
	Addr     string        `mapstructure:"addr" validate:"required,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"lock-ttl" validate:"gte=0"`
	Retries  int           `mapstructure:"lock-retries" validate:"gte=0"`
	Backoff  time.Duration `mapstructure:"backoff" validate:"gte=0"`
}

var validate = validation.New("mapstructure")

// Validate checks the settings against their tags
func (c Config) Validate() error {
	return validate.Struct("redis", c)
}

// DefaultConfig returns the settings used when none are given
func DefaultConfig() Config {
	return Config{
		Addr:    "localhost:6379",
		TTL:     30 * time.Second,
		Retries: 0,
		Backoff: 500 * time.Millisecond,
	}
}

// Key returns the redis key guarding imports of company
func Key(company models.ID) string {
	return fmt.Sprintf("move-import:company:%d", company)
}

// heldLock is an obtained redis lock
type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
	Release(ctx context.Context) error
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (heldLock, error)
}

// clientObtainer adapts redislock.Client to obtainer
type clientObtainer struct {
	client *redislock.Client
}

func (c clientObtainer) Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (heldLock, error) {
	l, err := c.client.Obtain(ctx, key, ttl, opt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Redis is a Locker backed by redislock. A held lock is refreshed every half
// TTL until it is released, so runs may outlast the TTL.
type Redis struct {
	client obtainer
	config Config
	logger logger.Logger
}

// NewRedis connects a locker to the redis server described by cfg
func NewRedis(cfg Config, log logger.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedis(clientObtainer{client: redislock.New(rdb)}, cfg, log)
}

func newRedis(client obtainer, cfg Config, log logger.Logger) *Redis {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Redis{client: client, config: cfg, logger: log.WithComponent("lock")}
}

func (r *Redis) options() *redislock.Options {
	if r.config.Retries <= 0 {
		return nil
	}
	return &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(r.config.Backoff), r.config.Retries),
	}
}

// Acquire obtains the lock of company or fails without waiting longer than
// the configured retries
func (r *Redis) Acquire(ctx context.Context, company models.ID) (Release, error) {
	key := Key(company)
	l, err := r.client.Obtain(ctx, key, r.config.TTL, r.options())
	if err == redislock.ErrNotObtained {
		r.logger.WithField("key", key).Warn("Could not obtain import lock")
		return nil, errors.PersistenceError(errors.CodeLockNotObtained, fmt.Sprintf("company %d", company), err).
			WithContext("key", key)
	} else if err != nil {
		return nil, errors.PersistenceError(errors.CodeConnectionFailed, "import lock", err).
			WithContext("key", key)
	}

	r.logger.WithField("key", key).Debug("Obtained import lock")

	stop := make(chan struct{})
	lost := make(chan error, 1)
	go r.keepAlive(context.WithoutCancel(ctx), l, key, stop, lost)

	var once sync.Once
	return func(ctx context.Context) error {
		var refreshErr error
		once.Do(func() {
			close(stop)
			refreshErr = <-lost
		})
		if refreshErr != nil {
			return errors.PersistenceError(errors.CodeLockNotObtained, "import lock refresh", refreshErr).
				WithContext("key", key)
		}
		if err := l.Release(ctx); err != nil && err != redislock.ErrLockNotHeld {
			return errors.PersistenceError(errors.CodeQueryFailed, "import lock release", err).
				WithContext("key", key)
		}
		return nil
	}, nil
}

// keepAlive refreshes l until stop is closed, then sends the refresh error
// that ended it, or nil, on lost
func (r *Redis) keepAlive(ctx context.Context, l heldLock, key string, stop <-chan struct{}, lost chan<- error) {
	ticker := time.NewTicker(r.config.TTL / 2)
	defer ticker.Stop()

	var err error
	for err == nil {
		select {
		case <-stop:
			lost <- nil
			return
		case <-ticker.C:
			err = l.Refresh(ctx, r.config.TTL, nil)
		}
	}

	r.logger.WithError(err).WithField("key", key).Error("Import lock lost, another import may run concurrently")
	<-stop
	lost <- err
}

// Local is an in-process Locker for single runs and tests
type Local struct {
	mu   sync.Mutex
	held map[models.ID]bool
}

// NewLocal creates an in-process locker
func NewLocal() *Local {
	return &Local{held: make(map[models.ID]bool)}
}

func (l *Local) Acquire(_ context.Context, company models.ID) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[company] {
		return nil, errors.PersistenceError(errors.CodeLockNotObtained, fmt.Sprintf("company %d", company), nil).
			WithContext("key", Key(company))
	}
	l.held[company] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, company)
		return nil
	}, nil
}

var (
	_ Locker = (*Redis)(nil)
	_ Locker = (*Local)(nil)
)
