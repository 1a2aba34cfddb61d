package tenancy

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/config"
	"telemetry_backend/platform/logger"
	"telemetry_backend/platform/phone"
)

// ErrOperatorNotFound is returned when no tenant schema contains an operator
// matching the contact's phone number.
var ErrOperatorNotFound = apperr.NotFound("operator not found for contact")

// Store is the persistence port the resolver scans through.
type Store interface {
	TenantSchemas(ctx context.Context, limit int) ([]string, error)
	OperatorByPhone(ctx context.Context, schema, rawPhone, digits string) (Operator, bool, error)
	FirstActiveScheme(ctx context.Context, schema string, operatorID int64) (int64, bool, error)
	OperatorMappedToScheme(ctx context.Context, schema string, operatorID, schemeID int64) (bool, error)
	SchemeExists(ctx context.Context, schema string, schemeID int64) (bool, error)
	UpdateOperatorLanguage(ctx context.Context, schema string, operatorID int64, languageID int) error
	UpdateSchemeChannel(ctx context.Context, schema string, schemeID int64, channel int) error
}

// Resolver finds the tenant schema for a contact by scanning all tenant
// namespaces, short-circuiting on the first match. Matches are cached in
// Redis keyed by the digits-only phone, and concurrent scans for the same
// contact are collapsed so one webhook burst costs one scan.
type Resolver struct {
	store      Store
	cache      *redis.Client
	group      singleflight.Group
	maxSchemas int
	cacheTTL   time.Duration
	log        *logger.Logger
}

// NewResolver creates a resolver. The cache client may be nil, in which case
// every resolution scans.
func NewResolver(store Store, cache *redis.Client, cfg config.TenancyConfig, log *logger.Logger) *Resolver {
	return &Resolver{
		store:      store,
		cache:      cache,
		maxSchemas: cfg.GetTenantScanMaxSchemas(),
		cacheTTL:   cfg.GetTenantSchemaCacheTTL(),
		log:        log,
	}
}

const cacheKeyPrefix = "tenancy:phone-schema:"

// ResolveByContact returns the first tenant schema containing an operator
// whose phone matches the contact id, along with the operator row.
func (r *Resolver) ResolveByContact(ctx context.Context, contactID string) (Match, error) {
	digits := phone.Digits(contactID)
	if digits == "" {
		return Match{}, apperr.Validation("contactId is required")
	}

	if schema, ok := r.cachedSchema(ctx, digits); ok {
		op, found, err := r.store.OperatorByPhone(ctx, schema, contactID, digits)
		if err == nil && found {
			return Match{Schema: schema, Operator: op}, nil
		}
		// Stale entry: the operator moved or was removed. Drop it and scan.
		r.evict(ctx, digits)
	}

	result, err, _ := r.group.Do(digits, func() (any, error) {
		return r.scan(ctx, contactID, digits)
	})
	if err != nil {
		return Match{}, err
	}
	return result.(Match), nil
}

func (r *Resolver) scan(ctx context.Context, contactID, digits string) (Match, error) {
	schemas, err := r.store.TenantSchemas(ctx, r.maxSchemas)
	if err != nil {
		return Match{}, apperr.Wrap(apperr.KindInternal, "enumerate tenant schemas", err)
	}

	scanned := 0
	for _, schema := range schemas {
		scanned++
		op, found, err := r.store.OperatorByPhone(ctx, schema, contactID, digits)
		if err != nil {
			return Match{}, err
		}
		if found {
			r.log.TenantScan(phone.DisplayE164(contactID), scanned, schema)
			r.remember(ctx, digits, schema)
			return Match{Schema: schema, Operator: op}, nil
		}
	}

	r.log.TenantScan(phone.DisplayE164(contactID), scanned, "")
	return Match{}, ErrOperatorNotFound
}

// DefaultScheme returns the operator's lowest-ordered active scheme.
func (r *Resolver) DefaultScheme(ctx context.Context, schema string, operatorID int64) (int64, error) {
	schemeID, found, err := r.store.FirstActiveScheme(ctx, schema, operatorID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFound("no active scheme for operator")
	}
	return schemeID, nil
}

// VerifyMembership returns a Forbidden error unless an active mapping exists
// for the operator and scheme pair.
func (r *Resolver) VerifyMembership(ctx context.Context, schema string, operatorID, schemeID int64) error {
	mapped, err := r.store.OperatorMappedToScheme(ctx, schema, operatorID, schemeID)
	if err != nil {
		return err
	}
	if !mapped {
		return apperr.Forbidden("operator is not assigned to this scheme")
	}
	return nil
}

// SchemeExists reports whether the scheme id exists in the schema.
func (r *Resolver) SchemeExists(ctx context.Context, schema string, schemeID int64) (bool, error) {
	return r.store.SchemeExists(ctx, schema, schemeID)
}

// UpdateOperatorLanguage stores the operator's selected language id.
func (r *Resolver) UpdateOperatorLanguage(ctx context.Context, schema string, operatorID int64, languageID int) error {
	return r.store.UpdateOperatorLanguage(ctx, schema, operatorID, languageID)
}

// UpdateSchemeChannel stores the reporting channel chosen for a scheme.
func (r *Resolver) UpdateSchemeChannel(ctx context.Context, schema string, schemeID int64, channel int) error {
	return r.store.UpdateSchemeChannel(ctx, schema, schemeID, channel)
}

func (r *Resolver) cachedSchema(ctx context.Context, digits string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	schema, err := r.cache.Get(ctx, cacheKeyPrefix+digits).Result()
	if err != nil || schema == "" {
		return "", false
	}
	return schema, true
}

func (r *Resolver) remember(ctx context.Context, digits, schema string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKeyPrefix+digits, schema, r.cacheTTL).Err(); err != nil {
		r.log.Warn("schema cache write failed", "error", err)
	}
}

func (r *Resolver) evict(ctx context.Context, digits string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKeyPrefix+digits).Err(); err != nil {
		r.log.Warn("schema cache eviction failed", "error", err)
	}
}
