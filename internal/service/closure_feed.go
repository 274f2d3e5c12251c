package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"projet-5iw/backend/config"
	pkgerrors "projet-5iw/backend/pkg/errors"
)

// ErrFeedUnavailable 假期源无法访问；由 ClosureCalendar 吸收，不向接口暴露
var ErrFeedUnavailable = pkgerrors.New(pkgerrors.ErrUnavailable, "学校假期源不可用")

// ── 学校假期 ICS 源 ──────────────────────────────────────────
//
// 职责：拉取并解析官方学校日历（RFC 5545），返回指定年份的假期区间。
//
// 设计决策：
//   - SUMMARY 按配置的正则过滤（默认匹配 vacances / pont）
//   - DATE 型 DTEND 为开区间，转为闭区间（减一天）
//   - 原始文档可放入共享缓存（Redis），缓存故障时直接拉取
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize   = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout  = 30 * time.Second
	feedCacheKeyBase = "closure_feed:"
)

// ClosurePeriod 闭馆区间，Start/End 均为包含端点的日期（正午）
type ClosurePeriod struct {
	Start time.Time
	End   time.Time
}

// Contains 判断日期（已归一化到正午）是否在区间内
func (p ClosurePeriod) Contains(day time.Time) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}

// ClosureFeed 假期区间数据源
type ClosureFeed interface {
	FetchPeriods(ctx context.Context, year int) ([]ClosurePeriod, error)
}

// FeedCache 原始文档的共享缓存
type FeedCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type icsClosureFeed struct {
	url     string
	pattern *regexp.Regexp
	client  *http.Client
	loc     *time.Location
	cache   FeedCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewICSClosureFeed 创建 ICS 假期源；cache 可为 nil
func NewICSClosureFeed(cfg *config.ClosureFeedConfig, loc *time.Location, cache FeedCache, logger *zap.Logger) (ClosureFeed, error) {
	pattern, err := regexp.Compile(cfg.SummaryPattern)
	if err != nil {
		return nil, fmt.Errorf("假期 SUMMARY 正则无效: %w", err)
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = icsFetchTimeout
	}
	return &icsClosureFeed{
		url:     cfg.URL,
		pattern: pattern,
		client:  &http.Client{Timeout: timeout},
		loc:     loc,
		cache:   cache,
		ttl:     cfg.CacheTTL,
		logger:  logger,
	}, nil
}

func (f *icsClosureFeed) FetchPeriods(ctx context.Context, year int) ([]ClosurePeriod, error) {
	body, err := f.document(ctx, year)
	if err != nil {
		return nil, err
	}
	return ParseClosurePeriods(bytes.NewReader(body), year, f.pattern, f.loc)
}

// document 优先读共享缓存，未命中时拉取并回填
func (f *icsClosureFeed) document(ctx context.Context, year int) ([]byte, error) {
	key := feedCacheKeyBase + strconv.Itoa(year)
	if f.cache != nil {
		body, ok, err := f.cache.GetBytes(ctx, key)
		switch {
		case err != nil:
			f.logger.Warn("读取假期缓存失败，直接拉取", zap.Int("year", year), zap.Error(err))
		case ok:
			return body, nil
		}
	}

	rc, err := fetchICSContent(ctx, f.client, strings.ReplaceAll(f.url, "{year}", strconv.Itoa(year)))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("读取 ICS 失败: %w", err)
	}

	if f.cache != nil {
		if err := f.cache.SetBytes(ctx, key, body, f.ttl); err != nil {
			f.logger.Warn("写入假期缓存失败", zap.Int("year", year), zap.Error(err))
		}
	}
	return body, nil
}

// fetchICSContent 从 URL 获取 ICS 内容
func fetchICSContent(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("构造 ICS 请求失败: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrFeedUnavailable, resp.StatusCode)
	}
	// 限制响应体大小，防止异常源返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseClosurePeriods 解析 ICS，返回 SUMMARY 匹配且与 year 相交的假期区间
func ParseClosurePeriods(r io.Reader, year int, pattern *regexp.Regexp, loc *time.Location) ([]ClosurePeriod, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	yearStart := noonOf(time.Date(year, time.January, 1, 0, 0, 0, 0, loc), loc)
	yearEnd := noonOf(time.Date(year, time.December, 31, 0, 0, 0, 0, loc), loc)

	var periods []ClosurePeriod
	for _, evt := range cal.Events() {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil || !pattern.MatchString(summary.Value) {
			continue
		}
		start, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
		if err != nil {
			continue
		}
		end := start
		if dtEnd, dateOnly, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc); err == nil {
			end = dtEnd
			// DTEND 为开区间：纯日期或恰好零点时结束日取前一天
			if dtEnd.After(start) && (dateOnly || isMidnight(dtEnd)) {
				end = dtEnd.AddDate(0, 0, -1)
			}
		}

		p := ClosurePeriod{Start: noonOf(start, loc), End: noonOf(end, loc)}
		if p.End.Before(p.Start) {
			p.End = p.Start
		}
		if p.End.Before(yearStart) || p.Start.After(yearEnd) {
			continue
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，dateOnly 表示值为纯日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.Parse("20060102T150405", val); err == nil {
		src := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				src = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, src).In(loc), false, nil
	}
	if t, err := time.Parse("20060102", val); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}
