package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/puzpuzpuz/xsync"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const entitlementLoadTimeout = 10 * time.Second

type cachedEntitlements struct {
	entitlements *entities.TenantEntitlements
	loadedAt     time.Time
}

// CachedEntitlementService resolves tenant entitlements from the database and caches them per tenant
type CachedEntitlementService struct {
	repo  interfaces.EntitlementRepository
	ttl   time.Duration
	now   func() time.Time
	cache *xsync.MapOf[cachedEntitlements]
	group singleflight.Group
}

// NewCachedEntitlementService creates an entitlement service; a non-positive ttl disables caching
func NewCachedEntitlementService(repo interfaces.EntitlementRepository, ttl time.Duration) *CachedEntitlementService {
	return &CachedEntitlementService{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		cache: xsync.NewMapOf[cachedEntitlements](),
	}
}

// EnsureGameEnabled fails with GameNotEntitled when the tenant cannot use the game
func (s *CachedEntitlementService) EnsureGameEnabled(ctx context.Context, tenantID int64, gameCode string) error {
	te, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}
	return te.EnsureGameEnabled(gameCode)
}

// EnsurePlayEnabled fails with GameNotEntitled or PlayNotEntitled
func (s *CachedEntitlementService) EnsurePlayEnabled(ctx context.Context, tenantID int64, gameCode, playType string) error {
	te, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}
	return te.EnsurePlayEnabled(gameCode, playType)
}

// Invalidate drops the cached entitlements of the tenant
func (s *CachedEntitlementService) Invalidate(tenantID int64) {
	s.cache.Delete(tenantKey(tenantID))
}

func (s *CachedEntitlementService) load(ctx context.Context, tenantID int64) (*entities.TenantEntitlements, error) {
	key := tenantKey(tenantID)

	if s.ttl > 0 {
		if cached, ok := s.cache.Load(key); ok && s.now().Sub(cached.loadedAt) < s.ttl {
			return cached.entitlements, nil
		}
	}

	// the shared load outlives any single caller; each caller still honors its own ctx
	ch := s.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), entitlementLoadTimeout)
		defer cancel()

		rows, err := s.repo.GetByTenant(loadCtx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load entitlements for tenant %d: %w", tenantID, err)
		}

		te := entities.NewTenantEntitlements(tenantID, rows)
		if s.ttl > 0 {
			s.cache.Store(key, cachedEntitlements{entitlements: te, loadedAt: s.now()})
		}

		log.WithFields(log.Fields{
			"tenantId": tenantID,
			"rows":     len(rows),
		}).Debug("Loaded tenant entitlements")
		return te, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entities.TenantEntitlements), nil
	}
}

func tenantKey(tenantID int64) string {
	return strconv.FormatInt(tenantID, 10)
}
