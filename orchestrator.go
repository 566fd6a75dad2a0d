package jbproducts

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Volodya262/jb-products-info/config"
	redlock "github.com/Volodya262/jb-products-info/internal/lock"
	"github.com/Volodya262/jb-products-info/model"
)

// ErrRefreshInProgress is returned when a refresh cycle is requested while
// another one still holds the single-flight lock.
var ErrRefreshInProgress = errors.New("a refresh cycle is already running")

const (
	refreshLockKey = "jbinfo:refresh-lock"
	refreshLockTTL = 15 * time.Minute
)

// RunExclusiveRefresh runs CheckAndQueueBuilds under a redis lock so that
// scheduled and manual refreshes never overlap. The lock TTL is extended
// periodically while the cycle runs, so a cycle slowed down by the feeds
// keeps its lock instead of letting a second cycle in. Callers receiving
// ErrRefreshInProgress should treat the refresh as already underway, not as a
// failure.
func (p *ProductsInfo) RunExclusiveRefresh(ctx context.Context, productCode model.ProductCode) ([]*model.BuildInProcess, error) {
	locker := redlock.NewLocker(p.redis, refreshLockKey, uuid.New().String())
	if err := locker.Lock(ctx, refreshLockTTL); err != nil {
		return nil, ErrRefreshInProgress
	}

	heartbeatDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(refreshLockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatDone:
				return
			case <-ticker.C:
				if err := locker.ExtendLock(ctx, refreshLockTTL); err != nil {
					logrus.Errorf("Failed to extend refresh lock: %v", err)
					return
				}
			}
		}
	}()
	defer func() {
		close(heartbeatDone)
		if err := locker.Unlock(ctx); err != nil {
			logrus.Errorf("Failed to release refresh lock: %v", err)
		}
	}()

	return p.CheckAndQueueBuilds(ctx, productCode)
}

// CheckAndQueueBuilds runs one refresh cycle: reconcile both feeds, upsert
// the product projection, decide per build whether it needs (re)processing,
// persist the batch and publish the tasks. productCode is optional; when
// non-empty the cycle is scoped to that product only.
//
// Products are upserted every cycle even when no build changes, so lastUpdate
// always reflects the most recent successful check.
func (p *ProductsInfo) CheckAndQueueBuilds(ctx context.Context, productCode model.ProductCode) ([]*model.BuildInProcess, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.Processing.TargetBuildsAgeDays)

	products, buildsByProduct, err := p.fetchRemoteBuilds(ctx, cutoff, productCode)
	if err != nil {
		return nil, err
	}

	if err := p.datasource.UpdateLocalProducts(ctx, products); err != nil {
		return nil, err
	}

	remoteBuilds := flattenRemoteBuilds(buildsByProduct, cutoff)

	existingBuilds, err := p.datasource.GetAllBuilds(ctx)
	if err != nil {
		return nil, err
	}
	existingByID := make(map[string]*model.BuildInProcess, len(existingBuilds))
	for _, build := range existingBuilds {
		existingByID[build.ID()] = build
	}

	queued, processing, failed := cfg.ExpireParams()
	expireParams := model.BuildInProcessExpireParams{
		QueuedExpireMinutes:          queued,
		ProcessingExpireMinutes:      processing,
		FailedToProcessExpireMinutes: failed,
	}

	var buildsToQueue []*model.BuildInProcess
	for _, remoteBuild := range remoteBuilds {
		existing, found := existingByID[remoteBuild.ID()]
		if !found {
			buildsToQueue = append(buildsToQueue, remoteBuild)
			continue
		}

		if existing.Status() == model.StatusFailedToConstruct && remoteBuild.DownloadURL() != "" {
			existing.ToDownloadURLUpdated(remoteBuild.DownloadURL())
			buildsToQueue = append(buildsToQueue, existing)
			continue
		}

		if existing.ShouldRequeue(expireParams) {
			logrus.Infof("Marking build as expired: %s", existing)
			existing.ToExpired()
			buildsToQueue = append(buildsToQueue, existing)
		} else {
			logrus.Infof("Skipping build %s", existing)
		}
	}

	if len(buildsToQueue) == 0 {
		return nil, nil
	}

	for _, build := range buildsToQueue {
		build.ToQueued()
	}
	if err := p.datasource.SaveNewBuilds(ctx, buildsToQueue); err != nil {
		return nil, err
	}
	for _, build := range buildsToQueue {
		build.ApplyEventsSaved()
	}
	if err := p.queue.PublishBuilds(ctx, buildsToQueue); err != nil {
		return nil, err
	}
	return buildsToQueue, nil
}

// flattenRemoteBuilds turns the per-product outcome map into one list, keeps
// only builds with a known release date after the cutoff and de-duplicates by
// build identity, first occurrence winning. A product pair sharing an update
// channel yields the same build twice; only one aggregate may own the
// identity.
func flattenRemoteBuilds(buildsByProduct map[model.ProductCode][]*model.BuildInProcess, cutoff time.Time) []*model.BuildInProcess {
	codes := make([]model.ProductCode, 0, len(buildsByProduct))
	for code := range buildsByProduct {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var flattened []*model.BuildInProcess
	seen := make(map[string]bool)
	for _, code := range codes {
		for _, build := range buildsByProduct[code] {
			if build.ReleaseDate() == nil || !build.ReleaseDate().After(cutoff) {
				continue
			}
			if seen[build.ID()] {
				continue
			}
			seen[build.ID()] = true
			flattened = append(flattened, build)
		}
	}
	return flattened
}
