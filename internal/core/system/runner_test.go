package system

import (
	"reflect"
	"testing"
	"time"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(dt time.Duration) {
	*r.log = append(*r.log, r.name+"@"+dt.String())
}

func TestRunner_PhaseOrderStableWithinPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"fibers", PhaseUpdate, &log})
	r.Register(recorder{"events", PhasePreUpdate, &log})
	r.Register(recorder{"fibers-late", PhaseUpdate, &log})

	r.Tick(50 * time.Millisecond)

	want := []string{"events@50ms", "fibers@50ms", "fibers-late@50ms", "cleanup@50ms"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	if r.Frames() != 1 {
		t.Fatalf("expected 1 frame, got %d", r.Frames())
	}
}
