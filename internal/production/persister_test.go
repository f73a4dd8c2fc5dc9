package production

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/comalice/tickfsm"
	"github.com/comalice/tickfsm/scheduler"
	"github.com/comalice/tickfsm/testutil"
	"github.com/comalice/tickfsm/timebase"
)

func sampleSnapshot(t *testing.T) Snapshot {
	t.Helper()
	m := newLamp(t)

	return Snapshot{
		ID:       "run-1",
		TakenAt:  time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		Tick:     42,
		Machines: []MachineStatus{StatusOf(m)},
		Tasks: []scheduler.TaskInfo{
			{Index: 0, Period: 100 * time.Millisecond, LastFire: timebase.TimePoint(300 * time.Millisecond)},
			{Index: 1, Period: time.Second, LastFire: 0},
		},
	}
}

func TestStatusOf(t *testing.T) {
	src, clk := testutil.NewFakeSource()
	clk.Step(7 * time.Millisecond)
	m := newLamp(t, tickfsm.WithClock(src))
	if err := m.Dispatch(flip{}); err != nil {
		t.Fatal(err)
	}

	got := StatusOf(m)
	want := MachineStatus{
		Name:      "lamp-1",
		State:     "on",
		StateType: "production.lampOn",
		EnteredAt: timebase.TimePoint(7 * time.Millisecond),
		Running:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StatusOf mismatch (-want +got):\n%s", diff)
	}
}

func TestPersisters_RoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			p, err := NewPersister(format, dir)
			if err != nil {
				t.Fatalf("NewPersister failed: %v", err)
			}

			snap := sampleSnapshot(t)
			if err := p.Save(context.Background(), snap); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "run-1."+format)); err != nil {
				t.Fatalf("snapshot file missing: %v", err)
			}

			loaded, err := p.Load(context.Background(), "run-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if diff := cmp.Diff(snap, loaded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPersisters_LoadMissing(t *testing.T) {
	p, err := NewJSONPersister(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Load(context.Background(), "nope")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestPersisters_Errors(t *testing.T) {
	p, err := NewYAMLPersister(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Save(context.Background(), Snapshot{}); err == nil {
		t.Error("expected error for empty id")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Save(ctx, Snapshot{ID: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if _, err := NewPersister("toml", t.TempDir()); err == nil {
		t.Error("expected error for unknown format")
	}
}
