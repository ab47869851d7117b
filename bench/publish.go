package bench

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Publisher delivers run reports to an external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, rep *Report) error
}

// PublishAll hands rep to every publisher. Failures are logged and
// returned joined; one failing sink does not stop the others.
func PublishAll(ctx context.Context, log zerolog.Logger, rep *Report, pubs ...Publisher) error {
	var errs []error
	for _, p := range pubs {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, rep); err != nil {
			log.Warn().Err(err).Str("sink", p.Name()).Str("driver", rep.Driver).Msg("publish report")
			errs = append(errs, err)
			continue
		}
		log.Debug().Str("sink", p.Name()).Str("driver", rep.Driver).Msg("report published")
	}
	return errors.Join(errs...)
}
