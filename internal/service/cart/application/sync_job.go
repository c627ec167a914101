// internal/service/cart/application/sync_job.go
package application

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/cart/domain"
)

// SyncJob 周期性地把活跃购物车从缓存对账进持久库。
// 单个购物车失败只记录不中断, 整轮扫描总能跑完。
// 缓存条目从不在这里删除, 过期交给 TTL。
type SyncJob struct {
	cache    domain.CartCache
	store    domain.CartStore
	interval time.Duration
	tracer   trace.Tracer

	// 上一轮成功落库的快照指纹。指纹没变的购物车直接跳过,
	// 缓存无变化时重跑一轮不产生任何写入。
	fingerprints map[string]uint64
}

type SweepReport struct {
	Synced  int
	Skipped int
	Failed  int
}

func NewSyncJob(cache domain.CartCache, store domain.CartStore, interval time.Duration) *SyncJob {
	return &SyncJob{
		cache:        cache,
		store:        store,
		interval:     interval,
		tracer:       otel.Tracer("cart-sync-job"),
		fingerprints: make(map[string]uint64),
	}
}

// Run 按固定间隔扫描, 直到 ctx 取消。
func (j *SyncJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	logger.L().Info().Dur("interval", j.interval).Msg("cart sync job started")
	for {
		select {
		case <-ctx.Done():
			logger.L().Info().Msg("cart sync job stopped")
			return
		case <-ticker.C:
			report := j.RunOnce(ctx)
			logger.L().Info().
				Int("synced", report.Synced).
				Int("skipped", report.Skipped).
				Int("failed", report.Failed).
				Msg("cart sync sweep finished")
		}
	}
}

// RunOnce 执行一轮完整扫描。
func (j *SyncJob) RunOnce(ctx context.Context) SweepReport {
	ctx, span := j.tracer.Start(ctx, "SyncJob.RunOnce")
	defer span.End()
	cartSyncSweeps.Inc()

	var report SweepReport
	ids, err := j.cache.ActiveCartIDs(ctx)
	if err != nil {
		// 索引读不出来, 这一轮什么都做不了。
		cartSyncFailures.Inc()
		logger.Ctx(ctx).Error().Err(err).Msg("failed to list active carts")
		report.Failed++
		return report
	}
	span.SetAttributes(attribute.Int("carts.active", len(ids)))

	for _, cartID := range ids {
		switch err := j.syncOne(ctx, cartID); {
		case err == nil:
			report.Synced++
		case errors.Is(err, errUnchanged):
			report.Skipped++
		default:
			report.Failed++
			cartSyncFailures.Inc()
			logger.Ctx(ctx).Warn().Err(err).Str("cart_id", cartID).Msg("cart sync failed, skipping")
		}
	}
	return report
}

var errUnchanged = errors.New("cart snapshot unchanged since last sweep")

func (j *SyncJob) syncOne(ctx context.Context, cartID string) error {
	header, err := j.cache.GetHeader(ctx, cartID)
	if errors.Is(err, domain.ErrCartNotFound) {
		// header 已随 TTL 过期, 索引里留下了悬挂的 ID。
		// 摘掉索引项, 不算失败。
		delete(j.fingerprints, cartID)
		if err := j.cache.RemoveActive(ctx, cartID); err != nil {
			return err
		}
		return errUnchanged
	}
	if err != nil {
		return err
	}
	items, err := j.cache.Items(ctx, cartID)
	if err != nil {
		return err
	}

	fp := snapshotFingerprint(header, items)
	if prev, ok := j.fingerprints[cartID]; ok && prev == fp {
		return errUnchanged
	}
	if err := j.store.Upsert(ctx, header, items); err != nil {
		return err
	}
	j.fingerprints[cartID] = fp
	cartsSynced.Inc()
	return nil
}

// snapshotFingerprint 对 header 业务字段和商品行做稳定哈希。
// UpdatedAt 不参与, 只看实际内容。
func snapshotFingerprint(header *domain.CartHeader, items map[string]int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%.2f|%.2f|%t", header.CartID, header.OwnerID, header.CouponCode, header.Discount, header.Total, header.IsActive)
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%d", k, items[k])
	}
	return h.Sum64()
}
