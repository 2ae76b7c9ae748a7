package repositories

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CouponRepository is the coupon store. Every method is safe for concurrent use and
// Redeem is the only way remaining is ever decremented.
type CouponRepository interface {
	// Create inserts a coupon whose code is already normalized. A taken code is a ConflictError.
	Create(ctx context.Context, coupon *models.Coupon) error
	// List returns all coupons, oldest first.
	List(ctx context.Context) ([]models.Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Redeem decrements remaining by one and appends the redemption in a single atomic step.
	// It returns ExhaustedError when remaining is already zero and ConflictError when the
	// coupon disappeared between lookup and decrement.
	Redeem(ctx context.Context, params models.RedeemParams) (*models.RedeemResult, error)
	ListRedemptions(ctx context.Context, couponID uuid.UUID) ([]models.CouponRedemption, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Store bundles the repositories of the configured driver.
type Store struct {
	Coupons CouponRepository
	Audits  AuditRepository
	Driver  string
	ping    func(ctx context.Context) error
	close   func() error
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases connections the store opened itself. The shared redis client is left to its owner.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewStore connects the backend selected by STORE_DRIVER. Redis is always available
// because the rate limiter needs it, Postgres is only dialed when it backs the store.
func NewStore(config *infrastructures.AppConfig, client *redis.Client) *Store {
	switch config.STORE_DRIVER {
	case infrastructures.StoreDriverRedis:
		logrus.Info("using redis coupon store")
		return &Store{
			Coupons: NewRedisCouponRepository(client, config),
			Audits:  NewRedisAuditRepository(client, config),
			Driver:  infrastructures.StoreDriverRedis,
			ping: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		}
	case infrastructures.StoreDriverPostgres:
	default:
		logrus.Warnf("unknown STORE_DRIVER %q, using postgres", config.STORE_DRIVER)
	}

	db := infrastructures.NewDatabase(config)
	logrus.Info("using postgres coupon store")
	return &Store{
		Coupons: NewPostgresCouponRepository(db, config),
		Audits:  NewPostgresAuditRepository(db, config),
		Driver:  infrastructures.StoreDriverPostgres,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func ProvideCouponRepository(store *Store) CouponRepository {
	return store.Coupons
}

func ProvideAuditRepository(store *Store) AuditRepository {
	return store.Audits
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError passes domain errors through and turns everything else into StoreUnavailableError,
// except rejections that would fail again on retry. Postgres data errors (class 22) are
// reported as bad input and constraint violations (class 23) as internal errors.
func storeError(err error, message string) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "22"):
			return errors.NewBadRequestError("Request data was rejected by the store").WithCause(err)
		case strings.HasPrefix(pgErr.Code, "23"):
			return errors.NewInternalServerError(err, message)
		}
	}

	if stderrors.Is(err, gorm.ErrDuplicatedKey) ||
		stderrors.Is(err, gorm.ErrForeignKeyViolated) ||
		stderrors.Is(err, gorm.ErrCheckConstraintViolated) {
		return errors.NewInternalServerError(err, message)
	}

	return errors.NewStoreUnavailableError(err, message)
}
