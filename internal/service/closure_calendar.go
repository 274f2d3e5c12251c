package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/fr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ClosureReason 闭馆原因
type ClosureReason string

const (
	ClosureNone           ClosureReason = ""
	ClosurePublicHoliday  ClosureReason = "public_holiday"
	ClosureSchoolVacation ClosureReason = "school_vacation"
)

// ClosureDay 单个闭馆日
type ClosureDay struct {
	Date   time.Time
	Reason ClosureReason
}

// ClosureCalendar 判断某日是否闭馆（法定节假日 / 学校假期）
//
// 设计说明：
//   - 法定节假日按规则计算，不依赖网络
//   - 学校假期按年份懒加载，每个进程每年最多拉取一次，且仅限配置的年份
//   - 拉取失败不报错：缓存空结果并记录警告，导入仍可进行（只是检测不到假期）
//   - 所有日期比较先归一化到当地正午，避免时区偏移导致跨日
type ClosureCalendar struct {
	feed      ClosureFeed
	holidays  *cal.BusinessCalendar
	loc       *time.Location
	supported map[int]bool
	logger    *zap.Logger

	mu      sync.RWMutex
	periods map[int][]ClosurePeriod
	group   singleflight.Group
}

// NewClosureCalendar 创建闭馆日历
func NewClosureCalendar(feed ClosureFeed, loc *time.Location, supportedYears []int, logger *zap.Logger) *ClosureCalendar {
	holidays := cal.NewBusinessCalendar()
	holidays.AddHoliday(fr.Holidays...)

	supported := make(map[int]bool, len(supportedYears))
	for _, y := range supportedYears {
		supported[y] = true
	}
	return &ClosureCalendar{
		feed:      feed,
		holidays:  holidays,
		loc:       loc,
		supported: supported,
		logger:    logger,
		periods:   make(map[int][]ClosurePeriod),
	}
}

// Location 日历所用时区
func (c *ClosureCalendar) Location() *time.Location { return c.loc }

// IsClosed 判断日期是否闭馆及原因
func (c *ClosureCalendar) IsClosed(ctx context.Context, date time.Time) (bool, ClosureReason) {
	day := noonOf(date, c.loc)
	// 不在支持年份内的日期一律视为不闭馆
	if !c.supported[day.Year()] {
		return false, ClosureNone
	}

	// 1. 法定节假日
	if actual, observed, _ := c.holidays.IsHoliday(day); actual || observed {
		return true, ClosurePublicHoliday
	}

	// 2. 耶稣升天节后的"桥"日按学校假期处理
	if _, _, h := c.holidays.IsHoliday(day.AddDate(0, 0, -1)); h == fr.Ascension {
		return true, ClosureSchoolVacation
	}

	// 3. 学校假期
	for _, p := range c.periodsFor(ctx, day.Year()) {
		if p.Contains(day) {
			return true, ClosureSchoolVacation
		}
	}
	return false, ClosureNone
}

// Closures 列出 [from, to] 内所有闭馆日（含端点）
func (c *ClosureCalendar) Closures(ctx context.Context, from, to time.Time) []ClosureDay {
	var days []ClosureDay
	last := noonOf(to, c.loc)
	for d := noonOf(from, c.loc); !d.After(last); d = d.AddDate(0, 0, 1) {
		if closed, reason := c.IsClosed(ctx, d); closed {
			days = append(days, ClosureDay{Date: d, Reason: reason})
		}
	}
	return days
}

// periodsFor 返回某年的学校假期，首次访问时拉取
func (c *ClosureCalendar) periodsFor(ctx context.Context, year int) []ClosurePeriod {
	if !c.supported[year] {
		return nil
	}

	c.mu.RLock()
	periods, ok := c.periods[year]
	c.mu.RUnlock()
	if ok {
		return periods
	}

	// 并发的首次访问合并为一次拉取；请求取消不应让缓存写入空结果
	v, _, _ := c.group.Do(strconv.Itoa(year), func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.periods[year]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		fetched, err := c.feed.FetchPeriods(context.WithoutCancel(ctx), year)
		if err != nil {
			c.logger.Warn("拉取学校假期失败，本年度按无假期处理",
				zap.Int("year", year), zap.Error(err))
			fetched = []ClosurePeriod{}
		}

		c.mu.Lock()
		c.periods[year] = fetched
		c.mu.Unlock()
		return fetched, nil
	})
	return v.([]ClosurePeriod)
}

// noonOf 取 t 的日历日期（按 t 自身的年月日），置为 loc 当地正午
func noonOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, loc)
}
