package bench

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"s7bench/driver"
	"s7bench/logging"
	"s7bench/s7"
)

// Options controls one benchmark run.
type Options struct {
	Cycles    int
	CycleTime time.Duration // pause between cycles
	Logger    zerolog.Logger
}

// Run connects d, performs opts.Cycles timed reads of every tag in specs,
// verifies each result against the expected values and disconnects.
//
// Disconnect is always attempted and timed, also when connecting or a cycle
// fails. The returned Results cover the cycles completed before a failure;
// the error is the failure itself.
func Run(ctx context.Context, d driver.Driver, opts Options, specs []TagSpec) (*Results, error) {
	log := opts.Logger.With().Str("driver", d.Name()).Logger()
	res := &Results{
		Driver:    d.Name(),
		ReadTimes: make([]time.Duration, 0, max(opts.Cycles, 0)),
	}

	tags := TagMap(specs)
	expected := make(map[string]TagSpec, len(specs))
	for _, s := range specs {
		expected[s.Name] = s
	}

	begin := time.Now()
	runErr := func() error {
		start := time.Now()
		err := d.Connect(ctx)
		res.ConnectionTime = time.Since(start)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		log.Debug().Dur("took", res.ConnectionTime).Msg("connected")
		logging.DebugLog("bench", "%s: connected in %s", d.Name(), res.ConnectionTime)

		for i := 0; i < opts.Cycles; i++ {
			start := time.Now()
			values, err := d.Read(tags)
			took := time.Since(start)
			if err != nil {
				return fmt.Errorf("cycle %d: %w", i+1, err)
			}
			res.ReadTimes = append(res.ReadTimes, took)
			res.CycleCount++

			if err := verify(values, expected); err != nil {
				return fmt.Errorf("cycle %d: %w", i+1, err)
			}
			res.LastValues = values
			log.Trace().Int("cycle", i+1).Dur("took", took).Msg("read")
			logging.DebugLog("bench", "%s: cycle %d read %d tags in %s", d.Name(), i+1, len(values), took)

			if i < opts.Cycles-1 && opts.CycleTime > 0 {
				if err := sleep(ctx, opts.CycleTime); err != nil {
					return err
				}
			}
		}
		return nil
	}()

	start := time.Now()
	closeErr := d.Close()
	res.DisconnectionTime = time.Since(start)
	res.Elapsed = time.Since(begin)

	if runErr != nil {
		ev := log.Error().Err(runErr).Int("completed", res.CycleCount)
		if driver.IsConnectionError(runErr) {
			ev = ev.Bool("connection", true)
		}
		ev.Msg("benchmark failed")
		return res, runErr
	}
	if closeErr != nil {
		log.Warn().Err(closeErr).Msg("disconnect")
	}
	return res, nil
}

// verify checks a read result against the scenario. Names that were not
// requested, values that differ and requested names missing from the
// result are all unexpected results.
func verify(values map[string]s7.Value, expected map[string]TagSpec) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, ok := expected[name]
		if !ok {
			return fmt.Errorf("%w: %s was not requested", s7.ErrUnexpectedResult, name)
		}
		if got := values[name]; !got.Equal(spec.Expected) {
			return fmt.Errorf("%w: %s for tag address %s: got %s %v, want %s %v",
				s7.ErrUnexpectedResult, name, spec.Address,
				s7.TypeName(got.Kind()), got, s7.TypeName(spec.Expected.Kind()), spec.Expected)
		}
	}
	if len(values) == len(expected) {
		return nil
	}
	var missing []string
	for name := range expected {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	spec := expected[missing[0]]
	return fmt.Errorf("%w: %s for tag address %s missing from result", s7.ErrUnexpectedResult, spec.Name, spec.Address)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
