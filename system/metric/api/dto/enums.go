package dto

import "time"

// MetricType 聚合指标类型
type MetricType string

const (
	MetricTypeSuccessRate  MetricType = "SUCCESS_RATE"
	MetricTypeBuildTime    MetricType = "BUILD_TIME"
	MetricTypeFailureCount MetricType = "FAILURE_COUNT"
	MetricTypeQueueLength  MetricType = "QUEUE_LENGTH"
)

// Period 聚合周期
type Period string

const (
	PeriodHourly  Period = "HOURLY"
	PeriodDaily   Period = "DAILY"
	PeriodWeekly  Period = "WEEKLY"
	PeriodMonthly Period = "MONTHLY"
)

// Periods 全部聚合周期，按窗口从小到大
var Periods = []Period{PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly}

func (p Period) Valid() bool {
	switch p {
	case PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Window 周期对应的回看窗口，未知周期按天处理
func (p Period) Window() time.Duration {
	switch p {
	case PeriodHourly:
		return time.Hour
	case PeriodWeekly:
		return 7 * 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}
