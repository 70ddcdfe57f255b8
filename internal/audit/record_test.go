package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/sched"
)

func TestHashInputs(t *testing.T) {
	ts := models.TaskSet{models.NewTask(1, 4, 4)}
	a := HashInputs(ts)
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
	if b := HashInputs(models.TaskSet{models.NewTask(1, 4, 4)}); a != b {
		t.Error("equal inputs hash differently")
	}
	if c := HashInputs(models.TaskSet{models.NewTask(1, 4, 5)}); a == c {
		t.Error("different inputs hash equally")
	}
	if got := HashInputs(func() {}); got != "hash_error" {
		t.Errorf("unmarshalable input hash = %q", got)
	}
}

func TestLog_Record(t *testing.T) {
	log := NewLog()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	inputs := models.TaskSet{models.NewTask(1, 4, 4)}
	ok := log.RecordOutcome(ActionAnalyze, "edf-ll73", inputs, nil)
	miss := log.RecordOutcome(ActionAnalyze, "rm-ll73", inputs, sched.NotSchedulable("utilization %s exceeds bound", "0.9"))
	other := log.Record(ActionDesign, "mpr-edf-sel09", "other inputs", "ok", "")

	if ok.Outcome != "ok" || ok.Details != "" {
		t.Errorf("ok record = %+v", ok)
	}
	if miss.Outcome != "not schedulable" || miss.Details == "" {
		t.Errorf("miss record = %+v", miss)
	}
	if ok.RunID != log.RunID() || ok.ID == miss.ID {
		t.Error("records should share the run ID and have distinct IDs")
	}
	if !ok.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v", ok.Timestamp)
	}

	if got := len(log.Records()); got != 3 {
		t.Fatalf("Records() has %d entries, want 3", got)
	}
	found := log.Find(ok.InputsHash)
	if len(found) != 2 || found[0].Subject != "edf-ll73" || found[1].Subject != "rm-ll73" {
		t.Errorf("Find() = %+v", found)
	}
	if got := log.Find(other.InputsHash); len(got) != 1 {
		t.Errorf("Find(other) = %+v", got)
	}
}

func TestLog_ConcurrentRecord(t *testing.T) {
	log := NewLog()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			log.Record(ActionDesign, fmt.Sprintf("worker-%d", i), i, "ok", "")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if got := len(log.Records()); got != 8 {
		t.Errorf("Records() has %d entries, want 8", got)
	}
}

func TestLog_WriteJSON(t *testing.T) {
	log := NewLog()
	log.Record(ActionAnalyze, "gfb03", 1, "ok", "")
	log.Record(ActionAnalyze, "bak03", 1, "not schedulable", "task 0")

	var buf bytes.Buffer
	if err := log.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	scanner := bufio.NewScanner(&buf)
	var subjects []string
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %q: %v", scanner.Text(), err)
		}
		subjects = append(subjects, rec.Subject)
	}
	if len(subjects) != 2 || subjects[0] != "gfb03" || subjects[1] != "bak03" {
		t.Errorf("subjects = %v", subjects)
	}
}
