package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/workmill/workmill/internal/metrics"
)

func sampleReport() Report {
	c := metrics.NewCollector()
	c.RecordTask(10*time.Millisecond, nil)
	c.RecordTask(20*time.Millisecond, nil)
	c.RecordTask(5*time.Millisecond, os.ErrDeadlineExceeded)
	return Report{
		RunID: "01JTESTRUNID",
		Stats: c.Stats(time.Second),
		FailedTasks: []FailedTask{
			{Index: 2, Label: "orders", Reason: "i/o timeout", DurationMs: 5.0},
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport())
	out := buf.String()

	for _, want := range []string{
		"Run ID:            01JTESTRUNID",
		"Total Tasks:       3",
		"Completed:         2",
		"Failed:            1",
		"Failed Tasks:",
		"orders (index 2, 5.0ms): i/o timeout",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportUnlabeledFailure(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport()
	report.FailedTasks = []FailedTask{{Index: 7, Reason: "boom"}}
	PrintReport(&buf, report)

	if !strings.Contains(buf.String(), "task 7 (index 7") {
		t.Fatalf("expected fallback name for unlabeled task:\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Stats.Total != 3 || len(decoded.FailedTasks) != 1 {
		t.Fatalf("round trip lost data: %+v", decoded)
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSONReport(path, sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON on disk: %v", err)
	}
	if decoded.RunID != "01JTESTRUNID" {
		t.Fatalf("run id lost: %+v", decoded)
	}

	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}
