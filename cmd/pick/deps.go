package main

import (
	"context"
	"fmt"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/directory"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/wiki"
)

// lookup is the wiki surface shared by the plain and cached clients.
type lookup interface {
	SearchTitles(ctx context.Context, prefix string, limit int) ([]candidate.Page, error)
	FetchSummary(ctx context.Context, page candidate.Page) (candidate.Summary, error)
}

// openStore loads the directory, moving a corrupt snapshot aside.
func (a *app) openStore(m *metrics.Metrics) (*directory.Store, error) {
	store := directory.NewStore(a.cfg.DataDir, a.cfg.DataFile, m, a.log)
	backup, err := store.LoadOrReset()
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	if backup != "" {
		a.log.Warn("Started with an empty directory", logger.String("backup", backup))
	}
	return store, nil
}

// newLookup builds the wiki client, wrapped in the Redis summary cache when
// a Redis URL is configured. The returned close func is never nil.
func (a *app) newLookup(ctx context.Context, m *metrics.Metrics) (lookup, bool, func(), error) {
	client := wiki.NewClient(wiki.Config{
		APIURL:     a.cfg.WikiAPIURL,
		SummaryURL: a.cfg.SummaryURL,
		UserAgent:  a.cfg.UserAgent,
		Timeout:    a.cfg.HTTPTimeout,
	}, m, a.log.With(logger.String("component", "wiki")))

	if a.cfg.RedisURL == "" {
		return client, false, func() {}, nil
	}

	rdb, err := wiki.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, false, nil, err
	}
	a.log.Info("Summary cache enabled", logger.Duration("ttl", a.cfg.CacheTTL))
	cached := wiki.NewCachedClient(client, wiki.NewRedisCache(rdb, a.cfg.CacheTTL), m, a.log)
	return cached, true, func() { _ = rdb.Close() }, nil
}
