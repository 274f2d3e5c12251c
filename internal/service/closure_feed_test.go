package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"projet-5iw/backend/config"
	pkgerrors "projet-5iw/backend/pkg/errors"
)

var zoneCICS = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//test//calendrier scolaire//FR",
	"BEGIN:VEVENT",
	"UID:noel-2025",
	"DTSTART;VALUE=DATE:20251220",
	"DTEND;VALUE=DATE:20260105",
	"SUMMARY:Vacances de Noël",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:ete-2025",
	"DTSTART:20250704T220000Z",
	"DTEND:20250831T220000Z",
	"SUMMARY:Vacances d'Été",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:rentree-2025",
	"DTSTART;VALUE=DATE:20250901",
	"SUMMARY:Rentrée scolaire des élèves",
	"END:VEVENT",
	"END:VCALENDAR",
}, "\r\n")

func TestParseClosurePeriods(t *testing.T) {
	pattern := regexp.MustCompile(`(?i)vacances|pont`)

	periods, err := ParseClosurePeriods(strings.NewReader(zoneCICS), 2025, pattern, paris)
	if err != nil {
		t.Fatalf("ParseClosurePeriods 失败: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("2025 年期望 2 个假期，实际 %d: %+v", len(periods), periods)
	}

	noel := periods[0]
	if got := noel.End.Format("2006-01-02"); got != "2026-01-04" {
		t.Errorf("DATE 型 DTEND 为开区间，期望结束 2026-01-04，实际 %s", got)
	}
	ete := periods[1]
	if ete.Start.Format("2006-01-02") != "2025-07-05" || ete.End.Format("2006-01-02") != "2025-08-31" {
		t.Errorf("UTC 时间应换算到当地日期，实际 %s ~ %s", ete.Start.Format("2006-01-02"), ete.End.Format("2006-01-02"))
	}
	if !ete.Contains(noonOf(date(2025, 8, 31), paris)) || ete.Contains(noonOf(date(2025, 9, 1), paris)) {
		t.Error("夏季假期应包含 08-31，不包含 09-01")
	}
}

func TestParseClosurePeriods_FiltersByYear(t *testing.T) {
	pattern := regexp.MustCompile(`(?i)vacances`)

	periods, err := ParseClosurePeriods(strings.NewReader(zoneCICS), 2026, pattern, paris)
	if err != nil {
		t.Fatalf("ParseClosurePeriods 失败: %v", err)
	}
	if len(periods) != 1 {
		t.Errorf("2026 年只应保留跨年的圣诞假期，实际 %d", len(periods))
	}
}

func TestParseClosurePeriods_Invalid(t *testing.T) {
	_, err := ParseClosurePeriods(strings.NewReader("not a calendar"), 2025, regexp.MustCompile("x"), paris)
	if err == nil {
		t.Error("非法 ICS 应返回错误")
	}
}

// memoryCache 内存版 FeedCache
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestICSClosureFeed_FetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	var lastPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(zoneCICS))
	}))
	defer srv.Close()

	cache := &memoryCache{data: make(map[string][]byte)}
	feed, err := NewICSClosureFeed(&config.ClosureFeedConfig{
		URL:            srv.URL + "/calendrier/{year}.ics",
		SummaryPattern: `(?i)vacances|pont`,
		FetchTimeout:   5 * time.Second,
		CacheTTL:       time.Hour,
	}, paris, cache, zap.NewNop())
	if err != nil {
		t.Fatalf("NewICSClosureFeed 失败: %v", err)
	}

	for i := 0; i < 2; i++ {
		periods, err := feed.FetchPeriods(context.Background(), 2025)
		if err != nil {
			t.Fatalf("FetchPeriods 失败: %v", err)
		}
		if len(periods) != 2 {
			t.Errorf("期望 2 个假期，实际 %d", len(periods))
		}
	}
	if hits.Load() != 1 {
		t.Errorf("第二次应命中缓存，实际请求 %d 次", hits.Load())
	}
	if lastPath.Load() != "/calendrier/2025.ics" {
		t.Errorf("{year} 占位符未替换，实际路径 %v", lastPath.Load())
	}
}

func TestICSClosureFeed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	feed, _ := NewICSClosureFeed(&config.ClosureFeedConfig{
		URL:            srv.URL,
		SummaryPattern: `(?i)vacances`,
	}, paris, nil, zap.NewNop())

	_, err := feed.FetchPeriods(context.Background(), 2025)
	if !errors.Is(err, pkgerrors.ErrUnavailable) {
		t.Errorf("HTTP 503 应归为 Unavailable，实际 %v", err)
	}
}

func TestNewICSClosureFeed_InvalidPattern(t *testing.T) {
	_, err := NewICSClosureFeed(&config.ClosureFeedConfig{SummaryPattern: "("}, paris, nil, zap.NewNop())
	if err == nil {
		t.Error("非法正则应返回错误")
	}
}
