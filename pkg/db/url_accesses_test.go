package db

import (
	"testing"
	"time"
)

func TestRecordAccess(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	urlID, _ := db.InsertURL("https://example.com/test/")

	err := db.RecordAccess(0, urlID, "", true, 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("RecordAccess() failed: %v", err)
	}

	var durationMS int64
	var errorType string
	var success bool
	err = db.QueryRow(`
		SELECT duration_ms, error_type, success
		FROM url_accesses WHERE url_id = ?
	`, urlID).Scan(&durationMS, &errorType, &success)
	if err != nil {
		t.Fatalf("failed to query access: %v", err)
	}

	if durationMS != 1500 {
		t.Errorf("duration_ms = %d, want 1500", durationMS)
	}
	if errorType != "" {
		t.Errorf("error_type = %q, want empty", errorType)
	}
	if !success {
		t.Error("success = false, want true")
	}
}

func TestRecordAccess_Failed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, _ := db.InsertRun("crawl")
	urlID, _ := db.InsertURL("https://example.com/fail/")

	if err := db.RecordAccess(runID, urlID, "source_unavailable", false, time.Second); err != nil {
		t.Fatalf("RecordAccess() failed: %v", err)
	}

	record, err := db.GetLastAccess(urlID)
	if err != nil {
		t.Fatalf("GetLastAccess() failed: %v", err)
	}
	if record.ErrorType != "source_unavailable" {
		t.Errorf("error_type = %q, want %q", record.ErrorType, "source_unavailable")
	}
	if record.Success {
		t.Error("success = true, want false")
	}
	if !record.RunID.Valid || record.RunID.Int64 != runID {
		t.Errorf("run_id = %+v, want %d", record.RunID, runID)
	}
}

func TestGetLastAccess(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	urlID, _ := db.InsertURL("https://example.com/test/")

	db.RecordAccess(0, urlID, "", true, 0)
	db.RecordAccess(0, urlID, "timeout", false, 0)
	db.RecordAccess(0, urlID, "", true, 10*time.Millisecond)

	record, err := db.GetLastAccess(urlID)
	if err != nil {
		t.Fatalf("GetLastAccess() failed: %v", err)
	}
	if record == nil {
		t.Fatal("GetLastAccess() returned nil")
	}
	if !record.Success || record.DurationMS != 10 {
		t.Errorf("last access = %+v", record)
	}
}

func TestGetLastAccess_NoAccesses(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	urlID, _ := db.InsertURL("https://example.com/new/")

	record, err := db.GetLastAccess(urlID)
	if err != nil {
		t.Fatalf("GetLastAccess() failed: %v", err)
	}
	if record != nil {
		t.Error("GetLastAccess() should return nil for URL with no accesses")
	}
}

func TestAccessSummary(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, _ := db.InsertRun("crawl")
	otherRun, _ := db.InsertRun("crawl")
	url1, _ := db.InsertURL("https://example.com/page1/")
	url2, _ := db.InsertURL("https://example.com/page2/")

	db.RecordAccess(runID, url1, "", true, 0)
	db.RecordAccess(runID, url2, "timeout", false, 0)
	db.RecordAccess(runID, url2, "timeout", false, 0)
	db.RecordAccess(otherRun, url1, "fetch_error", false, 0)

	got, err := db.AccessSummary(runID)
	if err != nil {
		t.Fatalf("AccessSummary() failed: %v", err)
	}
	if len(got) != 2 || got[""] != 1 || got["timeout"] != 2 {
		t.Errorf("AccessSummary() = %v", got)
	}
}
