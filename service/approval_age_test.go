package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestApprovalLogicAgeMonths(t *testing.T) {
	tests := []struct {
		name     string
		approval time.Time
		now      time.Time
		want     int
	}{
		{"same day", date(2024, 1, 15), date(2024, 1, 15), 0},
		{"one month exactly", date(2024, 1, 15), date(2024, 2, 15), 1},
		{"day before anniversary", date(2024, 1, 15), date(2024, 2, 14), 0},
		{"day 30 to day 15 of next month", date(2024, 1, 30), date(2024, 2, 15), 0},
		{"day 15 to day 30 of next month", date(2024, 1, 15), date(2024, 2, 29), 1},
		{"across years", date(2022, 11, 10), date(2024, 3, 10), 16},
		{"across years before anniversary", date(2022, 11, 10), date(2024, 3, 9), 15},
		{"future approval date", date(2025, 1, 1), date(2024, 6, 1), 0},
		{"future within month", date(2024, 6, 20), date(2024, 6, 1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApprovalLogicAgeMonths(tt.approval, tt.now))
		})
	}
}

func TestApprovalLogicAgeMonthsAddsOnePerCalendarMonth(t *testing.T) {
	for day := 1; day <= 28; day++ {
		start := date(2023, 1, day)
		for months := 0; months < 30; months++ {
			assert.Equal(t, months, ApprovalLogicAgeMonths(start, start.AddDate(0, months, 0)),
				"day=%d months=%d", day, months)
		}
	}
}
