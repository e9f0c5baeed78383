package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplesJSON = `[
	{"severity": "low", "timestamp": "2024-06-10T09:00:00Z", "duration": 120},
	{"severity": "medium", "timestamp": "2024-06-10T09:10:00Z", "duration": 80},
	{"severity": "high", "timestamp": "2024-06-10T09:20:00Z", "duration": 80},
	{"severity": "Medium", "timestamp": "2024-06-10T10:05:00Z", "duration": 30}
]`

func writeSamples(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(path, []byte(samplesJSON), 0o600); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestProcessTable(t *testing.T) {
	out, err := execute(t, "process", "--input", writeSamples(t))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, "totals: low=40 medium=30 high=80 extreme=0") {
		t.Fatalf("unexpected totals in output:\n%s", out)
	}
	if !strings.Contains(out, "2024-06-10T09:20:00Z") {
		t.Fatalf("expected high record timestamp in output:\n%s", out)
	}
}

func TestProcessJSON(t *testing.T) {
	out, err := execute(t, "process", "--input", writeSamples(t), "-o", "json")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var body struct {
		Records []struct {
			Severity string `json:"severity"`
			Duration int    `json:"duration"`
		} `json:"records"`
		Totals map[string]int `json:"totals"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(body.Records) != 3 {
		t.Fatalf("expected 3 records, got %+v", body.Records)
	}
	if body.Records[0].Severity != "low" || body.Records[0].Duration != 40 {
		t.Fatalf("unexpected first record: %+v", body.Records[0])
	}
	if body.Totals["high"] != 80 || body.Totals["medium"] != 30 {
		t.Fatalf("unexpected totals: %+v", body.Totals)
	}
}

func TestProcessWritesReport(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"exposure.xlsx", "exposure.pdf"} {
		path := filepath.Join(dir, name)
		if _, err := execute(t, "process", "--input", writeSamples(t), "--report", path, "--device", "0811"); err != nil {
			t.Fatalf("process %s: %v", name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}

func TestProcessErrors(t *testing.T) {
	if _, err := execute(t, "process"); err == nil {
		t.Fatalf("expected missing --input error")
	}
	if _, err := execute(t, "process", "--input", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := execute(t, "process", "--input", writeSamples(t), "-o", "yaml"); err == nil {
		t.Fatalf("expected output format error")
	}
	if _, err := execute(t, "process", "--input", writeSamples(t), "--report", filepath.Join(t.TempDir(), "out.csv")); err == nil {
		t.Fatalf("expected report extension error")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"severity":"severe","timestamp":"2024-06-10T09:00:00Z","duration":1}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "process", "--input", bad); err == nil {
		t.Fatalf("expected unknown severity error")
	}
}
