package model

import (
	"testing"
	"time"
)

func TestTaskValidate(t *testing.T) {
	cases := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"jewelry ok", Task{ID: "t1", ItemType: ItemTypeJewelry, Jewelry: &JewelryFilters{}}, false},
		{"watch ok", Task{ID: "t2", ItemType: ItemTypeWatch, Watch: &WatchFilters{}}, false},
		{"gemstone ok", Task{ID: "t3", ItemType: ItemTypeGemstone, Gemstone: &GemstoneFilters{}}, false},
		{"missing filters", Task{ID: "t4", ItemType: ItemTypeJewelry}, true},
		{"wrong filters", Task{ID: "t5", ItemType: ItemTypeWatch, Jewelry: &JewelryFilters{}}, true},
		{"two filter records", Task{ID: "t6", ItemType: ItemTypeJewelry, Jewelry: &JewelryFilters{}, Watch: &WatchFilters{}}, true},
		{"unknown type", Task{ID: "t7", ItemType: "coins"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestTaskDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	task := Task{PollIntervalS: 60, LastRun: now.Add(-30 * time.Second)}
	if task.Due(now) {
		t.Error("task ran 30s ago with 60s interval should not be due")
	}

	task.LastRun = now.Add(-60 * time.Second)
	if !task.Due(now) {
		t.Error("task ran exactly one interval ago should be due")
	}

	// Zero interval falls back to the 60s default.
	task = Task{LastRun: now.Add(-45 * time.Second)}
	if task.Due(now) {
		t.Error("default interval task should not be due after 45s")
	}
	if task.PollInterval() != 60*time.Second {
		t.Errorf("PollInterval() = %v, want 60s default", task.PollInterval())
	}

	// Never-run tasks are immediately due.
	task = Task{PollIntervalS: 300}
	if !task.Due(now) {
		t.Error("never-run task should be due")
	}
}
