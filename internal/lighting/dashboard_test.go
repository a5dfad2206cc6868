package lighting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/smartlight-core/internal/auth"
)

type dashboardFixture struct {
	dash    *Dashboard
	configs *SQLiteConfigRepository
	logs    *SQLiteSensorLogRepository
	admin   auth.Principal
}

func testDashboard(t *testing.T) *dashboardFixture {
	t.Helper()
	db := testDB(t)
	adminID := insertUser(t, db, "admin", "admin")
	configs := NewConfigRepository(db, StorageSingleton)
	logs := NewSensorLogRepository(db)

	return &dashboardFixture{
		dash: NewDashboard(configs, logs, DashboardConfig{
			MaxPageSize: DefaultMaxPageSize,
			Logger:      discardLogger(),
		}),
		configs: configs,
		logs:    logs,
		admin:   auth.Principal{UserID: adminID, Username: "admin", Role: auth.RoleAdmin},
	}
}

func TestDashboard_StatusEmpty(t *testing.T) {
	f := testDashboard(t)

	status, err := f.dash.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.LatestSensorData != nil {
		t.Errorf("LatestSensorData = %+v, want nil", status.LatestSensorData)
	}
	if status.CurrentConfig.ID != 0 || status.CurrentConfig.Device() != (DeviceConfig{Threshold: 2000}) {
		t.Errorf("CurrentConfig = %+v, want unsaved factory default", status.CurrentConfig)
	}
}

func TestDashboard_StatusWithData(t *testing.T) {
	f := testDashboard(t)
	ctx := context.Background()
	seedLogs(t, f.logs, 100, 200)

	if _, err := f.dash.UpdateConfig(ctx, f.admin, ConfigPatch{Threshold: ptr(1800)}); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	status, err := f.dash.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.LatestSensorData == nil || status.LatestSensorData.LightValue != 200 {
		t.Errorf("LatestSensorData = %+v, want light 200", status.LatestSensorData)
	}
	if status.CurrentConfig.Threshold != 1800 {
		t.Errorf("Threshold = %d, want 1800", status.CurrentConfig.Threshold)
	}
	if status.CurrentConfig.UpdatedBy == nil || *status.CurrentConfig.UpdatedBy != "admin" {
		t.Errorf("UpdatedBy = %v, want admin", status.CurrentConfig.UpdatedBy)
	}
}

func TestDashboard_Logs(t *testing.T) {
	f := testDashboard(t)
	seedLogs(t, f.logs, 10, 20, 30, 40, 50)

	page, err := f.dash.Logs(context.Background(), LogQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}

	want := Pagination{Total: 5, Page: 2, Limit: 2, TotalPages: 3}
	if page.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", page.Pagination, want)
	}
	if len(page.Logs) != 2 || page.Logs[0].LightValue != 30 || page.Logs[1].LightValue != 20 {
		t.Errorf("Logs = %+v, want light values [30 20]", page.Logs)
	}
}

func TestDashboard_NormaliseQuery(t *testing.T) {
	f := testDashboard(t)

	tests := []struct {
		name string
		in   LogQuery
		want LogQuery
	}{
		{name: "defaults", in: LogQuery{}, want: LogQuery{Page: 1, Limit: 50}},
		{name: "negative", in: LogQuery{Page: -3, Limit: -1}, want: LogQuery{Page: 1, Limit: 50}},
		{name: "clamped", in: LogQuery{Page: 2, Limit: 500}, want: LogQuery{Page: 2, Limit: 200}},
		{name: "unchanged", in: LogQuery{Page: 4, Limit: 25}, want: LogQuery{Page: 4, Limit: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.dash.NormaliseQuery(tt.in)
			if got.Page != tt.want.Page || got.Limit != tt.want.Limit {
				t.Errorf("NormaliseQuery() = page %d limit %d, want page %d limit %d",
					got.Page, got.Limit, tt.want.Page, tt.want.Limit)
			}
		})
	}
}

func TestDashboard_LogsEmpty(t *testing.T) {
	f := testDashboard(t)

	page, err := f.dash.Logs(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if page.Pagination.Total != 0 || page.Pagination.TotalPages != 0 {
		t.Errorf("Pagination = %+v, want zero totals", page.Pagination)
	}
	if page.Logs == nil {
		t.Error("Logs = nil, want empty slice")
	}
}

func TestDashboard_UpdateConfigRequiresAdmin(t *testing.T) {
	f := testDashboard(t)
	user := auth.Principal{UserID: 99, Username: "viewer", Role: auth.RoleUser}

	_, err := f.dash.UpdateConfig(context.Background(), user, ConfigPatch{Threshold: ptr(1)})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("UpdateConfig() error = %v, want ErrForbidden", err)
	}
	if _, err := f.configs.Current(context.Background()); !errors.Is(err, ErrConfigNotFound) {
		t.Error("a rejected update must not create a config row")
	}
}

func TestDashboard_UpdateConfigPatchSemantics(t *testing.T) {
	f := testDashboard(t)
	ctx := context.Background()

	got, err := f.dash.UpdateConfig(ctx, f.admin, ConfigPatch{Threshold: ptr(1500)})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if got.Threshold != 1500 || got.ManualMode || got.LampStatus {
		t.Errorf("first update = %+v, want threshold 1500 with defaults", got)
	}

	got, err = f.dash.UpdateConfig(ctx, f.admin, ConfigPatch{ManualMode: ptr(true), LampStatus: ptr(true)})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if got.Threshold != 1500 || !got.ManualMode || !got.LampStatus {
		t.Errorf("second update = %+v, want threshold kept, manual and lamp on", got)
	}
}

func TestDashboard_Statistics(t *testing.T) {
	f := testDashboard(t)
	ctx := context.Background()

	// One stale reading, then three inside the window.
	f.logs.now = stepClock(logEpoch.Add(-48*time.Hour), 0)
	if err := f.logs.Append(ctx, &SensorLog{LightValue: 9999}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	f.logs.now = stepClock(logEpoch, time.Minute)
	for _, r := range []Reading{{1200, false}, {2800, true}, {3000, true}} {
		if err := f.logs.Append(ctx, &SensorLog{LightValue: r.LightValue, LampStatus: r.LampStatus}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	f.dash.now = func() time.Time { return logEpoch.Add(time.Hour) }

	report, err := f.dash.Statistics(ctx, ParsePeriod("bogus"))
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if report.Period != Period24h {
		t.Errorf("Period = %q, want 24h", report.Period)
	}
	s := report.Statistics
	if s.TotalLogs != 3 || s.LampOnPercentage != 66.67 || s.AvgLightValue != 2333 {
		t.Errorf("Statistics = %+v, want 3 logs, 66.67%%, avg 2333", s)
	}
	if len(report.ChartData) != 3 {
		t.Fatalf("len(ChartData) = %d, want 3", len(report.ChartData))
	}
	if report.ChartData[0].Value != 1200 || report.ChartData[2].Value != 3000 {
		t.Errorf("ChartData not ascending: %+v", report.ChartData)
	}

	report, err = f.dash.Statistics(ctx, Period7d)
	if err != nil {
		t.Fatalf("Statistics(7d) error = %v", err)
	}
	if report.Statistics.TotalLogs != 4 {
		t.Errorf("7d TotalLogs = %d, want 4", report.Statistics.TotalLogs)
	}
}

func TestDashboard_StatisticsEmpty(t *testing.T) {
	f := testDashboard(t)

	report, err := f.dash.Statistics(context.Background(), Period30d)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if report.Statistics.MinLightValue != nil || report.Statistics.MaxLightValue != nil {
		t.Error("min/max must be nil with no readings")
	}
	if report.ChartData == nil || len(report.ChartData) != 0 {
		t.Errorf("ChartData = %v, want empty slice", report.ChartData)
	}
}
