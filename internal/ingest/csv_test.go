package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkealey/salience/internal/event"
)

func TestParseCSVBasic(t *testing.T) {
	in := `id,timestamp,label,temp,room
1,100,reading,21.5,kitchen
2,160,reading,22,kitchen
`
	recs, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	r := recs[0]
	if r.ID != 1 || r.Timestamp != 100 || !r.HasTime {
		t.Errorf("record 0 header fields = %+v", r)
	}
	if v := r.Attrs["temp"]; !v.Numeric || v.Num != 21.5 {
		t.Errorf("temp = %+v, want numeric 21.5", v)
	}
	if v := r.Attrs["room"]; v.Numeric || v.Text != "kitchen" {
		t.Errorf("room = %+v, want text kitchen", v)
	}
	if v := r.Attrs["label"]; v.Text != "reading" {
		t.Errorf("label = %+v, want text reading", v)
	}
}

func TestParseCSVRFC3339Timestamps(t *testing.T) {
	in := "timestamp,label\n1970-01-01T00:05:00Z,tick\n"
	recs, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if recs[0].Timestamp != 300 {
		t.Errorf("Timestamp = %d, want 300", recs[0].Timestamp)
	}
}

func TestParseCSVEmptyCellsAreAbsent(t *testing.T) {
	in := "timestamp,label,temp\n100,tick,\n200,,5\n"
	recs, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if _, ok := recs[0].Attrs["temp"]; ok {
		t.Error("empty temp cell should be absent")
	}
	if _, ok := recs[1].Attrs["label"]; ok {
		t.Error("empty label cell should be absent")
	}
}

func TestParseCSVOptionalColumns(t *testing.T) {
	in := "timestamp,duration,truth,label\n100,30,true,tick\n"
	recs, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	r := recs[0]
	if r.ID != -1 {
		t.Errorf("ID = %d, want -1 (positional)", r.ID)
	}
	if r.Duration != 30 || !r.Truth {
		t.Errorf("Duration = %d, Truth = %v", r.Duration, r.Truth)
	}
}

func TestParseCSVErrors(t *testing.T) {
	cases := map[string]string{
		"no header":     "",
		"no timestamp":  "id,label\n1,x\n",
		"bad id":        "id,timestamp\nseven,100\n",
		"bad timestamp": "timestamp\nyesterday\n",
		"bad duration":  "timestamp,duration\n100,soon\n",
		"bad truth":     "timestamp,truth\n100,perhaps\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCSV(strings.NewReader(in)); err == nil {
				t.Errorf("ParseCSV(%q) = nil error", in)
			}
		})
	}
}

func TestLoadGlob(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.csv", "timestamp,label\n200,late\n")
	write("a.csv", "timestamp,label\n100,early\n")

	store, err := LoadGlob(filepath.Join(dir, "*.csv"), event.FailFast)
	if err != nil {
		t.Fatalf("LoadGlob: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}
	events := store.Events()
	if events[0].Label() != "early" || events[1].Label() != "late" {
		t.Errorf("events out of chronological order: %v, %v", events[0].Label(), events[1].Label())
	}
}

func TestLoadGlobNoMatches(t *testing.T) {
	if _, err := LoadGlob(filepath.Join(t.TempDir(), "*.csv"), event.FailFast); err == nil {
		t.Error("expected error for empty glob")
	}
}

func TestLoadGlobSkipPolicy(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "good.csv"), []byte("timestamp,label\n100,ok\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.csv"), []byte("id,label\n1,x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadGlob(filepath.Join(dir, "*.csv"), event.FailFast); err == nil {
		t.Error("fail-fast load should surface the bad file")
	}

	store, err := LoadGlob(filepath.Join(dir, "*.csv"), event.SkipInvalid)
	if err != nil {
		t.Fatalf("LoadGlob skip: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1 after skipping bad file", store.Len())
	}
}

func TestPolicy(t *testing.T) {
	if p, err := Policy("fail"); err != nil || p != event.FailFast {
		t.Errorf("Policy(fail) = %v, %v", p, err)
	}
	if p, err := Policy("skip"); err != nil || p != event.SkipInvalid {
		t.Errorf("Policy(skip) = %v, %v", p, err)
	}
	if _, err := Policy("ignore"); err == nil {
		t.Error("Policy(ignore) should error")
	}
}
