// Package service wires the marker path, the experiment sequencer and the
// BCI pipeline into one process and implements the HTTP API dependencies.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/markerrig/internal/adapters/bci"
	"github.com/okian/markerrig/internal/adapters/input"
	"github.com/okian/markerrig/internal/adapters/mq/queue"
	"github.com/okian/markerrig/internal/adapters/mq/worker"
	"github.com/okian/markerrig/internal/adapters/player"
	"github.com/okian/markerrig/internal/adapters/repository"
	"github.com/okian/markerrig/internal/adapters/transport"
	"github.com/okian/markerrig/internal/config"
	"github.com/okian/markerrig/internal/dispatch"
	"github.com/okian/markerrig/internal/domain/dedupe"
	"github.com/okian/markerrig/internal/domain/marker"
	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/internal/domain/reaction"
	"github.com/okian/markerrig/internal/sequencer"
	"github.com/okian/markerrig/pkg/logger"
	"github.com/okian/markerrig/pkg/metrics"
)

// Service owns every long-lived component of a rig session.
type Service struct {
	mu sync.RWMutex

	cfg       *config.Config
	sessionID string

	// Marker path
	table      *marker.Table
	udp        *transport.UDPSender
	mqtt       *transport.MQTTPublisher
	journal    repository.Journal
	dispatcher *dispatch.Dispatcher

	// Session
	player    sequencer.Player
	seqOpts   []sequencer.Option
	sequencer *sequencer.Sequencer
	input     io.Reader
	ratings   dedupe.Deduper

	// BCI pipeline
	samples *queue.SampleQueue
	pump    *worker.Pump
	bci     *bci.Client

	// State
	started bool
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service for cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:     cfg,
		input:   os.Stdin,
		ratings: dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.RatingDedupeSize)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and opens every component. A failure here means the session
// must not begin; whatever was already opened is closed again.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("rig")
	}
	defer func() {
		if err != nil {
			s.closeLocked()
		}
	}()

	s.sessionID = uuid.NewString()
	s.logger.Info(ctx, "starting rig", logger.String("session", s.sessionID))

	if err := s.buildTable(); err != nil {
		return err
	}
	if err := s.buildMarkerPath(ctx); err != nil {
		return err
	}
	if err := s.buildSession(); err != nil {
		return err
	}
	s.buildBCI()

	s.started = true
	s.logger.Info(ctx, "rig started",
		logger.String("protocol", s.table.Protocol()),
		logger.String("marker_addr", s.udp.Addr()),
		logger.Int("trials", len(s.cfg.Trials)),
		logger.Bool("bci", s.bci != nil),
		logger.Bool("mqtt", s.mqtt != nil),
	)
	return nil
}

func (s *Service) buildTable() error {
	table, err := marker.Builtin(s.cfg.MarkerTable)
	if err != nil {
		return err
	}
	if overrides := s.cfg.Overrides(); len(overrides) > 0 {
		if table, err = table.Extend(overrides); err != nil {
			return err
		}
	}

	// Every name the session can emit must resolve, and the categories
	// must not alias a phase marker.
	names := marker.SequencerNames()
	for _, t := range s.cfg.Trials {
		names = append(names, t.Category)
	}
	if err := table.Require(names...); err != nil {
		return fmt.Errorf("%w: %w", ErrPreflight, err)
	}
	s.table = table
	return nil
}

func (s *Service) buildMarkerPath(ctx context.Context) error {
	udp, err := transport.NewUDPSender(s.cfg.MarkerHost, s.cfg.MarkerPort,
		transport.WithUDPLogger(s.logger.Named("udp")),
	)
	if err != nil {
		return err
	}
	s.udp = udp

	var advisory []transport.Sender
	if s.cfg.LSLEnabled {
		advisory = append(advisory, transport.NewLSLSender("markerrig", s.logger))
	}
	if s.cfg.MQTTBroker != "" {
		p := transport.NewMQTTPublisher(s.cfg.MQTTBroker, s.cfg.MQTTClientID,
			transport.WithMQTTTopic(s.cfg.MQTTTopic),
			transport.WithMQTTLogger(s.logger.Named("mqtt")),
		)
		if err := p.Connect(ctx); err != nil {
			s.logger.Warn(ctx, "mqtt mirror disabled", logger.String("broker", s.cfg.MQTTBroker), logger.Error(err))
		} else {
			s.mqtt = p
			advisory = append(advisory, p)
		}
	}

	if s.cfg.StorePath != "" {
		j, err := repository.OpenSQLite(ctx, s.cfg.StorePath, repository.WithLogger(s.logger.Named("journal")))
		if err != nil {
			return err
		}
		s.journal = j
	} else {
		s.journal = repository.NewMemoryJournal()
	}

	d, err := dispatch.New(s.table, s.udp,
		dispatch.WithAdvisory(advisory...),
		dispatch.WithJournal(s.journal, s.sessionID),
		dispatch.WithLogger(s.logger.Named("dispatch")),
	)
	if err != nil {
		return err
	}
	s.dispatcher = d
	return nil
}

func (s *Service) buildSession() error {
	if s.player == nil {
		if s.cfg.PlayerCommand != "" {
			p, err := player.NewExecPlayer(s.cfg.PlayerCommand, s.cfg.MediaDir,
				player.WithLogger(s.logger.Named("player")),
			)
			if err != nil {
				return err
			}
			s.player = p
		} else {
			s.player = player.NewTimedPlayer(s.cfg.PlayerFixed())
		}
	}

	opts := []sequencer.Option{
		sequencer.WithRestDurations(s.cfg.OpenRest(), s.cfg.CloseRest()),
		sequencer.WithInterTrialDelay(s.cfg.InterTrialDelay()),
		sequencer.WithFinishDelay(s.cfg.FinishDelay()),
		sequencer.WithRecorder(s.journal, s.sessionID),
		sequencer.WithLogger(s.logger.Named("sequencer")),
	}
	seq, err := sequencer.New(s.dispatcher, s.player, s.cfg.Trials, append(opts, s.seqOpts...)...)
	if err != nil {
		return err
	}
	s.sequencer = seq
	return nil
}

func (s *Service) buildBCI() {
	s.samples = queue.NewSampleQueue(queue.WithCapacity(s.cfg.BCIQueueSize))

	driver := reaction.NewCooldownDriver(
		reaction.WithCooldown(s.cfg.ReactionCooldown()),
		reaction.WithEpsilon(s.cfg.ReactionEpsilon),
	)
	var sinks []worker.Sink
	if s.mqtt != nil {
		mirror := s.mqtt
		sinks = append(sinks, worker.SinkFunc(func(ctx context.Context, r model.Reaction, sample model.Sample) error {
			return mirror.PublishReaction(ctx, r, sample.Valence, sample.Arousal, sampleTime(sample))
		}))
	}
	s.pump = worker.NewPump(s.samples, driver,
		worker.WithTick(s.cfg.BCITick()),
		worker.WithSinks(sinks...),
		worker.WithLogger(s.logger.Named("pump")),
	)

	if s.cfg.BCIEnabled {
		s.bci = bci.NewClient(s.cfg.BCIURL, s.samples, bci.WithLogger(s.logger.Named("bci")))
	}
}

// Run executes the session. The BCI pipeline and keypad run alongside it
// and are stopped when the session ends. The returned error is the
// session's: nil after a clean finish.
func (s *Service) Run(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pump.Run(bgCtx)
	}()

	if s.bci != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := s.bci.Run(bgCtx)
			switch {
			case errors.Is(err, bci.ErrConnect):
				s.logger.Warn(bgCtx, "bci unavailable, continuing without reactions", logger.Error(err))
			case err != nil:
				s.logger.Warn(bgCtx, "bci link lost", logger.Error(err))
			}
		}()
	}

	// The keypad goroutine is not waited for: a blocked read on a terminal
	// cannot be interrupted and the process exits after Run anyway.
	if s.cfg.StdinInput && s.input != nil {
		keypad := input.NewLineReader(s.input, s.sequencer, s.logger)
		go func() {
			if err := keypad.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn(bgCtx, "keypad input stopped", logger.Error(err))
			}
		}()
	}

	err := s.sequencer.Run(ctx)
	if err != nil {
		s.logger.Error(ctx, "session ended with error", logger.String("session", s.sessionID), logger.Error(err))
	} else {
		s.logger.Info(ctx, "session complete", logger.String("session", s.sessionID))
	}
	return err
}

// Stop releases every opened resource. It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.closeLocked()
	s.started = false
	s.logger.Info(context.Background(), "rig stopped", logger.String("session", s.sessionID))
}

func (s *Service) closeLocked() {
	if s.samples != nil {
		_ = s.samples.Close()
	}
	if s.mqtt != nil {
		_ = s.mqtt.Close()
	}
	if s.udp != nil {
		_ = s.udp.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn(context.Background(), "journal close failed", logger.Error(err))
		}
	}
}

// SessionID returns the id journaled with every marker and trial.
func (s *Service) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Journal returns the session journal.
func (s *Service) Journal() repository.Journal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.journal
}

// Rate forwards a keypad rating to the session.
func (s *Service) Rate(n int) bool {
	s.mu.RLock()
	seq := s.sequencer
	s.mu.RUnlock()
	if seq == nil {
		return false
	}
	return seq.Rate(n)
}

// SeenAndRecord implements dedupe.Deduper for remote rating ids.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.ratings.SeenAndRecord(ctx, id)
}

// Unrecord implements dedupe.Deduper.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.ratings.Unrecord(ctx, id)
}

// Size implements dedupe.Deduper.
func (s *Service) Size() int64 {
	return s.ratings.Size()
}

// Latest returns the newest BCI sample.
func (s *Service) Latest() (model.Sample, bool) {
	s.mu.RLock()
	pump := s.pump
	s.mu.RUnlock()
	if pump == nil {
		return model.Sample{}, false
	}
	return pump.Latest()
}

// GetStats returns session and pipeline statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":    s.started,
		"session":    s.sessionID,
		"rating_ids": s.ratings.Size(),
	}
	if s.sequencer == nil {
		return stats
	}

	stats["status"] = s.sequencer.Status()
	stats["protocol"] = s.table.Protocol()

	sent, failed := s.dispatcher.Stats()
	stats["markers_sent"] = sent
	stats["markers_failed"] = failed

	queueLen := s.samples.Len()
	metrics.UpdateQueueSize(queueLen)
	stats["queue_length"] = queueLen
	stats["queue_dropped"] = s.samples.Dropped()

	if s.bci != nil {
		stats["bci_connected"] = s.bci.Connected()
		stats["bci_received"] = s.bci.Received()
		stats["bci_decode_errors"] = s.bci.DecodeErrors()
	}
	if s.mqtt != nil {
		published, errs := s.mqtt.Stats()
		stats["mqtt_published"] = published
		stats["mqtt_errors"] = errs
	}
	return stats
}

func sampleTime(s model.Sample) time.Time {
	if s.TS <= 0 {
		return time.Now()
	}
	sec := int64(s.TS)
	return time.Unix(sec, int64((s.TS-float64(sec))*float64(time.Second)))
}
