package main

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"s7bench/api"
	"s7bench/bench"
	"s7bench/config"
	"s7bench/driver"
	"s7bench/s7"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"Batched, simple", "batched,simple"},
		{" , simple,,", "simple"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := strings.Join(splitList(tt.in), ","); got != tt.want {
			t.Errorf("splitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	err := flag.CommandLine.Parse([]string{
		"-host", "10.0.0.9",
		"-remoteSlot", "2",
		"-cycles", "3",
		"-cycle-time", "25",
		"-driver", "Batched",
		"-bus", "sim",
		"-p", "8181",
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Tags = "%DB1:0:INT|INT;1"
	applyFlags(cfg)

	if cfg.Host != "10.0.0.9" || cfg.Slot != 2 || cfg.NumCycles != 3 {
		t.Errorf("host=%s slot=%d cycles=%d", cfg.Host, cfg.Slot, cfg.NumCycles)
	}
	if cfg.CycleTime != 25*time.Millisecond {
		t.Errorf("CycleTime = %v", cfg.CycleTime)
	}
	if strings.Join(cfg.Drivers, ",") != "batched" || cfg.Bus != driver.BusSim {
		t.Errorf("drivers=%v bus=%s", cfg.Drivers, cfg.Bus)
	}
	if !cfg.Web.Enabled || cfg.Web.Port != 8181 {
		t.Errorf("web = %+v", cfg.Web)
	}
	if cfg.Rack != 0 || cfg.Tags == "" {
		t.Errorf("unset flags changed config: rack=%d tags=%q", cfg.Rack, cfg.Tags)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadScenario(t *testing.T) {
	tests := []struct {
		name    string
		tags    string
		wantN   int
		wantSrc config.TagSource
		wantErr string
	}{
		{"default", "", 19, config.TagSourceDefault, ""},
		{"inline", "%DB1:0:INT|INT;1\n%DB1:2:INT|INT;2", 2, config.TagSourceInline, ""},
		{"only comments", "# nothing here", 0, config.TagSourceInline, "no tags"},
		{"bad address", "%DB1:X:INT|INT;1", 0, config.TagSourceInline, "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Tags = tt.tags
			specs, src, err := loadScenario(cfg)
			if src != tt.wantSrc {
				t.Errorf("source = %q, want %q", src, tt.wantSrc)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(specs) != tt.wantN {
				t.Errorf("got %d tags, want %d", len(specs), tt.wantN)
			}
		})
	}
}

func TestRunDriverSimulator(t *testing.T) {
	cfg := config.DefaultConfig()
	specs, _, err := loadScenario(cfg)
	if err != nil {
		t.Fatal(err)
	}

	sim := s7.NewSimulator(0)
	if err := bench.SeedSimulator(sim, specs); err != nil {
		t.Fatal(err)
	}

	opts := driver.Options{Bus: driver.BusSim, Simulator: sim, MaxItemsPerBatch: 20}
	sc := bench.Scenario{Host: "sim", Bus: driver.BusSim, Cycles: 2}
	store := api.NewStore(10)

	for _, name := range driver.Names() {
		if err := runDriver(context.Background(), zerolog.Nop(), name, opts, sc, specs, []bench.Publisher{store}); err != nil {
			t.Errorf("runDriver(%s): %v", name, err)
		}
	}

	if store.Len() != 2 {
		t.Fatalf("store has %d reports, want 2", store.Len())
	}
	for _, name := range driver.Names() {
		rep := store.ByDriver(name)
		if rep == nil || !rep.OK() || rep.CompletedRuns != 2 || rep.Tags != 19 {
			t.Errorf("%s report = %+v", name, rep)
		}
	}

	if err := runDriver(context.Background(), zerolog.Nop(), "turbo", opts, sc, specs, nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestProbeStations(t *testing.T) {
	got := probeStations(s7.Station{Rack: 0, Slot: 2})
	want := []s7.Station{{Rack: 0, Slot: 2}, {Rack: 0, Slot: 1}, {Rack: 0, Slot: 0}}
	if len(got) != len(want) {
		t.Fatalf("probeStations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("station %d = %v, want %v", i, got[i], want[i])
		}
	}

	if got := probeStations(s7.Station{Rack: 1, Slot: 3}); len(got) != 4 {
		t.Errorf("non-default station: got %v, want it plus the 3 defaults", got)
	}
}

func simRunConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bus = driver.BusSim
	cfg.NumCycles = 1
	cfg.CycleTime = 0
	cfg.Log.Level = "error"
	cfg.Web.Enabled = true
	cfg.Web.Host = "127.0.0.1"
	cfg.Web.Port = 0
	return cfg
}

func TestRunWithStatusAPI(t *testing.T) {
	cfg := simRunConfig()

	done := make(chan int, 1)
	go func() { done <- run(cfg) }()

	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("run = %d, want 0", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return with the status API enabled and serve unset")
	}
}
