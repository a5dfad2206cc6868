package lighting

import (
	"context"
	"errors"
	"testing"
	"time"
)

var logEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// seedLogs appends readings one minute apart starting at logEpoch.
func seedLogs(t *testing.T, repo *SQLiteSensorLogRepository, values ...int) []SensorLog {
	t.Helper()

	repo.now = stepClock(logEpoch, time.Minute)
	logs := make([]SensorLog, len(values))
	for i, v := range values {
		l := &SensorLog{LightValue: v, LampStatus: v < DefaultThreshold}
		if err := repo.Append(context.Background(), l); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		logs[i] = *l
	}
	return logs
}

func TestSensorLogRepository_LatestEmpty(t *testing.T) {
	repo := NewSensorLogRepository(testDB(t))

	if _, err := repo.Latest(context.Background()); !errors.Is(err, ErrNoReadings) {
		t.Errorf("Latest() error = %v, want ErrNoReadings", err)
	}
}

func TestSensorLogRepository_AppendAndLatest(t *testing.T) {
	repo := NewSensorLogRepository(testDB(t))
	seeded := seedLogs(t, repo, 1200, 2800)

	latest, err := repo.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != seeded[1].ID || latest.LightValue != 2800 || latest.LampStatus {
		t.Errorf("Latest() = %+v, want %+v", latest, seeded[1])
	}
	if !latest.CreatedAt.Equal(logEpoch.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", latest.CreatedAt, logEpoch.Add(time.Minute))
	}
	if latest.ConfigID != nil {
		t.Errorf("ConfigID = %v, want nil", latest.ConfigID)
	}
}

func TestSensorLogRepository_ListPagination(t *testing.T) {
	repo := NewSensorLogRepository(testDB(t))
	seeded := seedLogs(t, repo, 10, 20, 30, 40, 50)

	logs, total, err := repo.List(context.Background(), LogQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	// Newest first: 50, 40 | 30, 20 | 10
	if logs[0].ID != seeded[2].ID || logs[1].ID != seeded[1].ID {
		t.Errorf("page 2 ids = [%d %d], want [%d %d]", logs[0].ID, logs[1].ID, seeded[2].ID, seeded[1].ID)
	}
}

func TestSensorLogRepository_ListBoundsInclusive(t *testing.T) {
	repo := NewSensorLogRepository(testDB(t))
	seeded := seedLogs(t, repo, 10, 20, 30, 40, 50)

	start := logEpoch.Add(time.Minute)
	end := logEpoch.Add(3 * time.Minute)
	logs, total, err := repo.List(context.Background(), LogQuery{Page: 1, Limit: 50, Start: &start, End: &end})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(logs) != 3 {
		t.Fatalf("total/len = %d/%d, want 3/3", total, len(logs))
	}
	if logs[0].ID != seeded[3].ID || logs[2].ID != seeded[1].ID {
		t.Errorf("ids = [%d .. %d], want [%d .. %d]", logs[0].ID, logs[2].ID, seeded[3].ID, seeded[1].ID)
	}
}

func TestSensorLogRepository_ListPastEnd(t *testing.T) {
	repo := NewSensorLogRepository(testDB(t))
	seedLogs(t, repo, 10, 20)

	logs, total, err := repo.List(context.Background(), LogQuery{Page: 5, Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if logs == nil || len(logs) != 0 {
		t.Errorf("logs = %v, want empty non-nil slice", logs)
	}
}

func TestSensorLogRepository_SinceAscending(t *testing.T) {
	repo := NewSensorLogRepository(testDB(t))
	seeded := seedLogs(t, repo, 10, 20, 30)

	logs, err := repo.Since(context.Background(), logEpoch.Add(time.Minute))
	if err != nil {
		t.Fatalf("Since() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	if logs[0].ID != seeded[1].ID || logs[1].ID != seeded[2].ID {
		t.Errorf("ids = [%d %d], want ascending [%d %d]", logs[0].ID, logs[1].ID, seeded[1].ID, seeded[2].ID)
	}
}

func TestSensorLogRepository_ConfigDeletedSetsNull(t *testing.T) {
	db := testDB(t)
	repo := NewSensorLogRepository(db)
	ctx := context.Background()

	res, err := db.Exec(`INSERT INTO system_configs (threshold, manual_mode, lamp_status, created_at, updated_at)
		VALUES (2000, 0, 0, '2026-01-01T00:00:00.000Z', '2026-01-01T00:00:00.000Z')`)
	if err != nil {
		t.Fatalf("inserting config: %v", err)
	}
	configID, _ := res.LastInsertId()

	l := &SensorLog{LightValue: 100, ConfigID: &configID}
	if err := repo.Append(ctx, l); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := db.Exec("DELETE FROM system_configs WHERE id = ?", configID); err != nil {
		t.Fatalf("deleting config: %v", err)
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ConfigID != nil {
		t.Errorf("ConfigID = %v, want nil", *latest.ConfigID)
	}
}
