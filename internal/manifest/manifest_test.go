package manifest

import (
	"testing"
	"time"
)

func TestManifestSerialization(t *testing.T) {
	m := &BuildManifest{
		ID:        "build-123",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Inputs: Inputs{
			SourceHash:    "source-hash-abc",
			SphinxVersion: "7.2.6",
			GitRevision:   "abc12345",
			Release:       "1.2.3",
		},
		Outputs: Outputs{
			Builder:   "html",
			OutputDir: "build/html",
			Demos:     4,
			APIStubs:  31,
			Pages:     2,
		},
		Status:   "success",
		Duration: 5000,
	}

	jsonData, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if len(jsonData) == 0 {
		t.Error("ToJSON returned empty data")
	}

	restored, err := FromJSON(jsonData)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}

	if restored.ID != m.ID {
		t.Errorf("expected ID %s, got %s", m.ID, restored.ID)
	}
	if restored.Inputs.SourceHash != m.Inputs.SourceHash {
		t.Errorf("expected source hash %s, got %s", m.Inputs.SourceHash, restored.Inputs.SourceHash)
	}
	if restored.Outputs.Builder != m.Outputs.Builder {
		t.Errorf("expected builder %s, got %s", m.Outputs.Builder, restored.Outputs.Builder)
	}
	if restored.Status != m.Status {
		t.Errorf("expected status %s, got %s", m.Status, restored.Status)
	}
	if !restored.Timestamp.Equal(m.Timestamp) {
		t.Errorf("expected timestamp %v, got %v", m.Timestamp, restored.Timestamp)
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	m := &BuildManifest{ID: "b1", Status: "success", Outputs: Outputs{Builder: "html", OutputDir: dir}}
	if err := m.Write(dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	restored, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if restored.ID != "b1" {
		t.Errorf("expected ID b1, got %s", restored.ID)
	}
}

func TestFromJSONInvalid(t *testing.T) {
	if _, err := FromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
