package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/coupon-core/internal/app/errors"
	"github.com/safatanc/coupon-core/internal/app/models"
	"github.com/safatanc/coupon-core/internal/infrastructures"
	"github.com/samber/lo"
)

// Each coupon is a hash holding the immutable attributes as JSON in "data" and the live
// counter in "remaining". Scripts below are the only writers.

// KEYS: code index, coupon hash, ordering zset, sequence
// ARGV: id, code, data, remaining, updated_at
var createCouponScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local seq = redis.call('INCR', KEYS[4])
redis.call('HSET', KEYS[2], 'code', ARGV[2], 'data', ARGV[3], 'remaining', ARGV[4], 'updated_at', ARGV[5])
redis.call('SET', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[3], seq, ARGV[1])
return 1
`)

// KEYS: coupon hash, redemption list, idempotency key
// ARGV: redemption json, use idempotency ("1" or "0"), updated_at
var redeemCouponScript = redis.NewScript(`
if ARGV[2] == '1' then
  local prior = redis.call('GET', KEYS[3])
  if prior then
    return {2, prior}
  end
end
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {-1}
end
local remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
if remaining <= 0 then
  return {0}
end
redis.call('HINCRBY', KEYS[1], 'remaining', -1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
redis.call('RPUSH', KEYS[2], ARGV[1])
if ARGV[2] == '1' then
  redis.call('SET', KEYS[3], ARGV[1])
end
return {1}
`)

// KEYS: coupon hash, ordering zset
// ARGV: id, code index prefix
var deleteCouponScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('DEL', ARGV[2] .. code)
return 1
`)

const (
	redeemReplayed  = 2
	redeemAccepted  = 1
	redeemExhausted = 0
	redeemMissing   = -1
)

type RedisCouponRepository struct {
	redis     *redis.Client
	keyPrefix string
	timeout   time.Duration
}

func NewRedisCouponRepository(client *redis.Client, config *infrastructures.AppConfig) *RedisCouponRepository {
	return &RedisCouponRepository{
		redis:     client,
		keyPrefix: config.REDIS_KEY_PREFIX,
		timeout:   config.STORE_TIMEOUT,
	}
}

func (r *RedisCouponRepository) couponKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:coupon:%s", r.keyPrefix, id)
}

func (r *RedisCouponRepository) codeKeyPrefix() string {
	return fmt.Sprintf("%s:coupon:code:", r.keyPrefix)
}

func (r *RedisCouponRepository) codeKey(code string) string {
	return r.codeKeyPrefix() + code
}

func (r *RedisCouponRepository) indexKey() string {
	return fmt.Sprintf("%s:coupons", r.keyPrefix)
}

func (r *RedisCouponRepository) sequenceKey() string {
	return fmt.Sprintf("%s:coupons:seq", r.keyPrefix)
}

func (r *RedisCouponRepository) redemptionsKey(couponID uuid.UUID) string {
	return fmt.Sprintf("%s:redemptions:%s", r.keyPrefix, couponID)
}

func (r *RedisCouponRepository) idempotencyKey(requesterID, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s", r.keyPrefix, requesterID, key)
}

func (r *RedisCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	data, err := json.Marshal(coupon)
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to encode coupon")
	}

	created, err := createCouponScript.Run(ctx, r.redis,
		[]string{r.codeKey(coupon.Code), r.couponKey(coupon.ID), r.indexKey(), r.sequenceKey()},
		coupon.ID.String(), coupon.Code, string(data), coupon.Remaining, coupon.UpdatedAt.Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return storeError(err, "Failed to create coupon")
	}
	if created == 0 {
		return errors.NewConflictError("Coupon code already exists")
	}

	return nil
}

func (r *RedisCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	ids, err := r.redis.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, storeError(err, "Failed to list coupons")
	}
	if len(ids) == 0 {
		return []models.Coupon{}, nil
	}

	pipe := r.redis.Pipeline()
	cmds := lo.Map(ids, func(id string, _ int) *redis.MapStringStringCmd {
		return pipe.HGetAll(ctx, fmt.Sprintf("%s:coupon:%s", r.keyPrefix, id))
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, storeError(err, "Failed to list coupons")
	}

	coupons := make([]models.Coupon, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		// Deleted between ZRANGE and HGETALL.
		if len(fields) == 0 {
			continue
		}
		coupon, err := decodeCoupon(fields)
		if err != nil {
			return nil, errors.NewInternalServerError(err, "Failed to decode coupon")
		}
		coupons = append(coupons, *coupon)
	}

	return coupons, nil
}

func (r *RedisCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.getByID(ctx, id)
}

func (r *RedisCouponRepository) getByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	fields, err := r.redis.HGetAll(ctx, r.couponKey(id)).Result()
	if err != nil {
		return nil, storeError(err, "Failed to get coupon")
	}
	if len(fields) == 0 {
		return nil, errors.NewNotFoundError("Coupon not found")
	}

	coupon, err := decodeCoupon(fields)
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to decode coupon")
	}
	return coupon, nil
}

func (r *RedisCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rawID, err := r.redis.Get(ctx, r.codeKey(code)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NewNotFoundError("Coupon not found")
		}
		return nil, storeError(err, "Failed to get coupon")
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Corrupt coupon code index")
	}

	return r.getByID(ctx, id)
}

func (r *RedisCouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	deleted, err := deleteCouponScript.Run(ctx, r.redis,
		[]string{r.couponKey(id), r.indexKey()},
		id.String(), r.codeKeyPrefix(),
	).Int()
	if err != nil {
		return storeError(err, "Failed to delete coupon")
	}
	if deleted == 0 {
		return errors.NewNotFoundError("Coupon not found")
	}

	return nil
}

func (r *RedisCouponRepository) Redeem(ctx context.Context, params models.RedeemParams) (*models.RedeemResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	redemption := params.Redemption
	payload, err := json.Marshal(redemption)
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to encode redemption")
	}

	useKey := "0"
	idemKey := r.idempotencyKey(redemption.RequesterID, "")
	if redemption.IdempotencyKey != nil {
		useKey = "1"
		idemKey = r.idempotencyKey(redemption.RequesterID, *redemption.IdempotencyKey)
	}

	reply, err := redeemCouponScript.Run(ctx, r.redis,
		[]string{r.couponKey(params.CouponID), r.redemptionsKey(params.CouponID), idemKey},
		string(payload), useKey, time.Now().UTC().Format(time.RFC3339Nano),
	).Slice()
	if err != nil {
		return nil, storeError(err, "Failed to redeem coupon")
	}
	if len(reply) == 0 {
		return nil, errors.NewInternalServerError(nil, "Empty reply from redeem script")
	}

	status, _ := reply[0].(int64)
	switch status {
	case redeemAccepted:
		return &models.RedeemResult{Redemption: redemption}, nil
	case redeemExhausted:
		return nil, errors.NewExhaustedError("Coupon has no remaining redemptions")
	case redeemMissing:
		return nil, errors.NewConflictError("Coupon was removed during redemption")
	case redeemReplayed:
		raw, _ := reply[1].(string)
		var prior models.CouponRedemption
		if err := json.Unmarshal([]byte(raw), &prior); err != nil {
			return nil, errors.NewInternalServerError(err, "Failed to decode redemption")
		}
		return replayRedemption(&prior, params.CouponID)
	default:
		return nil, errors.NewInternalServerError(nil, fmt.Sprintf("Unexpected redeem status %d", status))
	}
}

func (r *RedisCouponRepository) ListRedemptions(ctx context.Context, couponID uuid.UUID) ([]models.CouponRedemption, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	raws, err := r.redis.LRange(ctx, r.redemptionsKey(couponID), 0, -1).Result()
	if err != nil {
		return nil, storeError(err, "Failed to list coupon redemptions")
	}

	redemptions := make([]models.CouponRedemption, 0, len(raws))
	for _, raw := range raws {
		var redemption models.CouponRedemption
		if err := json.Unmarshal([]byte(raw), &redemption); err != nil {
			return nil, errors.NewInternalServerError(err, "Failed to decode redemption")
		}
		redemptions = append(redemptions, redemption)
	}

	return redemptions, nil
}

func decodeCoupon(fields map[string]string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := json.Unmarshal([]byte(fields["data"]), &coupon); err != nil {
		return nil, err
	}

	remaining, err := strconv.Atoi(fields["remaining"])
	if err != nil {
		return nil, err
	}
	coupon.Remaining = remaining

	if updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		coupon.UpdatedAt = updatedAt
	}

	return &coupon, nil
}

type RedisAuditRepository struct {
	redis     *redis.Client
	keyPrefix string
	timeout   time.Duration
}

func NewRedisAuditRepository(client *redis.Client, config *infrastructures.AppConfig) *RedisAuditRepository {
	return &RedisAuditRepository{
		redis:     client,
		keyPrefix: config.REDIS_KEY_PREFIX,
		timeout:   config.STORE_TIMEOUT,
	}
}

func (r *RedisAuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to encode audit log")
	}

	key := fmt.Sprintf("%s:audit:%s", r.keyPrefix, entry.RecordID)
	if err := r.redis.RPush(ctx, key, payload).Err(); err != nil {
		return storeError(err, "Failed to create audit log")
	}
	return nil
}
