package wiki_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/wiki"
)

func newCachedClient(t *testing.T, hits *atomic.Int32) (*wiki.CachedClient, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"titles":{"canonical":"Conan_Gray","normalized":"Conan Gray","display":"Conan Gray"},"extract":"Singer.","description":"American singer-songwriter"}`))
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb, err := wiki.NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	m := metrics.New()
	next := wiki.NewClient(wiki.Config{APIURL: srv.URL, SummaryURL: srv.URL}, m, logger.NewNop())
	return wiki.NewCachedClient(next, wiki.NewRedisCache(rdb, time.Hour), m, logger.NewNop()), mr, m
}

func TestCachedClientServesRepeatFromCache(t *testing.T) {
	var hits atomic.Int32
	c, mr, m := newCachedClient(t, &hits)
	page := candidate.Page{Title: "Conan Gray"}

	first, err := c.FetchSummary(context.Background(), page)
	require.NoError(t, err)
	second, err := c.FetchSummary(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("pick:summary:Conan_Gray"))
	assert.Equal(t, time.Hour, mr.TTL("pick:summary:Conan_Gray"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheResults.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheResults.WithLabelValues("miss")))
}

func TestCachedClientFallsThroughOnCacheFailure(t *testing.T) {
	var hits atomic.Int32
	c, mr, m := newCachedClient(t, &hits)
	mr.SetError("ERR cache unavailable")

	s, err := c.FetchSummary(context.Background(), candidate.Page{Title: "Conan Gray"})
	require.NoError(t, err)
	assert.Equal(t, "Conan Gray", s.NormalizedTitle)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheResults.WithLabelValues("error")))
}

func TestCachedClientIgnoresCorruptEntry(t *testing.T) {
	var hits atomic.Int32
	c, mr, _ := newCachedClient(t, &hits)
	require.NoError(t, mr.Set("pick:summary:Conan_Gray", "{not json"))

	s, err := c.FetchSummary(context.Background(), candidate.Page{Title: "Conan Gray"})
	require.NoError(t, err)
	assert.Equal(t, "Singer.", s.Extract)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewRedisClientAcceptsURL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := wiki.NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = wiki.NewRedisClient(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
