package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"s7bench/api"
	"s7bench/bench"
	"s7bench/config"
	"s7bench/kafka"
	"s7bench/mqtt"
	"s7bench/push"
	"s7bench/valkey"
)

// sinkStartTimeout bounds connecting to all report sinks.
const sinkStartTimeout = 10 * time.Second

// sinks owns the report sinks and the run store. It implements
// api.Managers.
type sinks struct {
	cfg   *config.Config
	log   zerolog.Logger
	store *api.Store

	mqttMgr   *mqtt.Manager
	valkeyMgr *valkey.Manager
	kafkaMgr  *kafka.Manager
	pushMgr   *push.Manager
}

var _ api.Managers = (*sinks)(nil)

func newSinks(cfg *config.Config, log zerolog.Logger) *sinks {
	s := &sinks{
		cfg:       cfg,
		log:       log,
		store:     api.NewStore(api.DefaultHistory),
		mqttMgr:   mqtt.NewManager(),
		valkeyMgr: valkey.NewManager(),
		kafkaMgr:  kafka.NewManager(cfg.Namespace),
		pushMgr:   push.NewManager(),
	}
	s.mqttMgr.LoadFromConfig(cfg.MQTT, cfg.Namespace)
	s.valkeyMgr.LoadFromConfig(cfg.Valkey, cfg.Namespace)
	s.kafkaMgr.LoadFromConfig(cfg.Kafka)
	if err := s.pushMgr.LoadFromConfig(cfg.Push); err != nil {
		log.Warn().Err(err).Msg("push config")
	}
	return s
}

func (s *sinks) GetConfig() *config.Config     { return s.cfg }
func (s *sinks) GetStore() *api.Store          { return s.store }
func (s *sinks) GetMQTTMgr() *mqtt.Manager     { return s.mqttMgr }
func (s *sinks) GetValkeyMgr() *valkey.Manager { return s.valkeyMgr }
func (s *sinks) GetKafkaMgr() *kafka.Manager   { return s.kafkaMgr }
func (s *sinks) GetPushMgr() *push.Manager     { return s.pushMgr }

// start connects every configured sink. Failures are logged; the benchmark
// runs without the failed sinks.
func (s *sinks) start(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sinkStartTimeout)
	defer cancel()

	if len(s.mqttMgr.List()) > 0 {
		n, err := s.mqttMgr.StartAll()
		s.logStart("mqtt", n, err)
	}
	if len(s.valkeyMgr.List()) > 0 {
		n, err := s.valkeyMgr.StartAll(ctx)
		s.logStart("valkey", n, err)
	}
	if len(s.kafkaMgr.ListClusters()) > 0 {
		n, err := s.kafkaMgr.ConnectEnabled(ctx)
		s.logStart("kafka", n, err)
	}
	if names := s.pushMgr.ListPushes(); len(names) > 0 {
		s.log.Info().Strs("push", names).Msg("webhooks configured")
	}
}

func (s *sinks) logStart(sink string, started int, err error) {
	if err != nil {
		s.log.Warn().Err(err).Str("sink", sink).Int("started", started).Msg("sink unavailable")
		return
	}
	s.log.Info().Str("sink", sink).Int("started", started).Msg("sink connected")
}

func (s *sinks) stop() {
	s.mqttMgr.StopAll()
	s.valkeyMgr.StopAll()
	s.kafkaMgr.StopAll()
}

// publishers returns the store and every sink that has something
// configured.
func (s *sinks) publishers() []bench.Publisher {
	pubs := []bench.Publisher{s.store}
	if len(s.mqttMgr.List()) > 0 {
		pubs = append(pubs, s.mqttMgr)
	}
	if len(s.valkeyMgr.List()) > 0 {
		pubs = append(pubs, s.valkeyMgr)
	}
	if len(s.kafkaMgr.ListClusters()) > 0 {
		pubs = append(pubs, s.kafkaMgr)
	}
	if len(s.pushMgr.ListPushes()) > 0 {
		pubs = append(pubs, s.pushMgr)
	}
	return pubs
}
