package lighting

import (
	"math"
	"time"
)

// Period is a statistics window ending now.
type Period string

// Supported statistics windows.
const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
)

// ParsePeriod maps a query value onto a Period. Unknown values fall back
// to Period24h.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case Period24h, Period7d, Period30d:
		return p
	default:
		return Period24h
	}
}

// Duration returns the window length in fixed hours.
func (p Period) Duration() time.Duration {
	switch p {
	case Period7d:
		return 7 * 24 * time.Hour
	case Period30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Statistics summarises the readings in a window. Min and max are nil
// when the window is empty.
type Statistics struct {
	TotalLogs        int     `json:"totalLogs"`
	LampOnCount      int     `json:"lampOnCount"`
	LampOffCount     int     `json:"lampOffCount"`
	LampOnPercentage float64 `json:"lampOnPercentage"`
	AvgLightValue    int     `json:"avgLightValue"`
	MaxLightValue    *int    `json:"maxLightValue"`
	MinLightValue    *int    `json:"minLightValue"`
}

// ChartPoint is one reading in chart form. Lamp is 1 for on and 0 for off.
type ChartPoint struct {
	Time  time.Time `json:"time"`
	Value int       `json:"value"`
	Lamp  int       `json:"lamp"`
}

// Report is the statistics response for a period.
type Report struct {
	Period     Period       `json:"period"`
	Statistics Statistics   `json:"statistics"`
	ChartData  []ChartPoint `json:"chartData"`
}

// Summarise computes statistics over logs.
func Summarise(logs []SensorLog) Statistics {
	stats := Statistics{TotalLogs: len(logs)}
	if len(logs) == 0 {
		return stats
	}

	var (
		sum    int64
		lo, hi = logs[0].LightValue, logs[0].LightValue
	)
	for _, l := range logs {
		if l.LampStatus {
			stats.LampOnCount++
		}
		sum += int64(l.LightValue)
		if l.LightValue < lo {
			lo = l.LightValue
		}
		if l.LightValue > hi {
			hi = l.LightValue
		}
	}

	total := float64(len(logs))
	stats.LampOffCount = len(logs) - stats.LampOnCount
	stats.LampOnPercentage = math.Round(float64(stats.LampOnCount)/total*100*100) / 100
	stats.AvgLightValue = int(math.Round(float64(sum) / total))
	stats.MinLightValue = &lo
	stats.MaxLightValue = &hi
	return stats
}

// ChartData maps logs onto chart points, preserving order.
func ChartData(logs []SensorLog) []ChartPoint {
	points := make([]ChartPoint, len(logs))
	for i, l := range logs {
		lamp := 0
		if l.LampStatus {
			lamp = 1
		}
		points[i] = ChartPoint{Time: l.CreatedAt, Value: l.LightValue, Lamp: lamp}
	}
	return points
}
