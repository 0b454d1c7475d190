package telemetry

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/gorilla/websocket"

	"github.com/pthm-cable/smoke/config"
)

func init() {
	config.MustInit("")
}

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("expected nil manager without error, got %v, %v", om, err)
	}
	// Methods are safe on a nil manager
	if err := om.WriteStats(WindowStats{}); err != nil {
		t.Errorf("write stats on nil manager: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("close nil manager: %v", err)
	}
}

func TestOutputManager_StatsHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("new output manager: %v", err)
	}
	for i := int32(1); i <= 3; i++ {
		if err := om.WriteStats(WindowStats{WindowEndTick: i * 60, DensityMass: float64(i)}); err != nil {
			t.Fatalf("write stats: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{TicksPerSecond: 100}, 60); err != nil {
		t.Fatalf("write perf: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("read stats.csv: %v", err)
	}
	if n := strings.Count(string(data), "window_end"); n != 1 {
		t.Errorf("expected one header row, found %d", n)
	}

	var rows []*WindowStats
	f, err := os.Open(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("open stats.csv: %v", err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("unmarshal stats.csv: %v", err)
	}
	if len(rows) != 3 || rows[2].WindowEndTick != 180 || rows[2].DensityMass != 3 {
		t.Errorf("unexpected rows: %d", len(rows))
	}

	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Errorf("perf.csv missing: %v", err)
	}
}

func TestOutputManager_WriteConfigAndCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("new output manager: %v", err)
	}
	defer om.Close()

	if err := om.WriteConfig(config.Cfg()); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(om.Path("config.yaml")); err != nil {
		t.Errorf("reload written config: %v", err)
	}

	type row struct {
		Frame int     `csv:"frame"`
		MS    float64 `csv:"ms"`
	}
	if err := om.WriteCSV("profile.csv", []row{{1, 2.5}, {2, 3.5}}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	data, err := os.ReadFile(om.Path("profile.csv"))
	if err != nil {
		t.Fatalf("read profile.csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "frame,ms\n") {
		t.Errorf("unexpected csv:\n%s", data)
	}
}

func TestStream_BroadcastStats(t *testing.T) {
	s := NewStream()
	srv := httptest.NewServer(s)
	defer srv.Close()
	defer s.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Clients() != 1 {
		t.Fatalf("expected one client, got %d", s.Clients())
	}

	s.BroadcastStats(WindowStats{WindowEndTick: 42, DensityMass: 1.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "stats" || msg.Stats == nil || msg.Stats.WindowEndTick != 42 || msg.Stats.DensityMass != 1.5 {
		t.Errorf("unexpected message: %+v", msg)
	}
}
