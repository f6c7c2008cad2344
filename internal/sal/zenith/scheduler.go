// Package zenith is a minimal scheduler that speaks the driver's topic
// protocol over any sal.Bus. It points near the zenith in the current filter,
// and its hooks let a run be scripted.
package zenith

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Request is what the scheduler knows when asked for a target
type Request struct {
	Night       int
	Timestamp   float64
	Observatory models.ObservatoryState
	Cloud       float64
	Seeing      float64
	Count       int
}

// Scheduler answers driver traffic from a script. Zero-valued hooks fall
// back to a zenith-pointing target and no filter swaps.
type Scheduler struct {
	Site astro.Site

	// Target picks the target for a request
	Target func(Request) models.Target
	// FilterSwap decides the start-of-day swap for a night
	FilterSwap func(night int) models.FilterSwap
	// Silent topics are never answered
	SilentTargets   bool
	SilentProposals bool
	SilentSwaps     bool
	// FailCommand names a command that is acknowledged as failed
	FailCommand string

	PackageVersions string

	bus sal.Bus
	log *slog.Logger
	sub *sal.Subscription

	mu           sync.Mutex
	state        int
	request      Request
	configTopics map[string]int
	observations []models.Observation
	targets      []models.Target
	done         chan struct{}
}

// New creates a scheduler on bus
func New(bus sal.Bus, site astro.Site, log *slog.Logger) *Scheduler {
	return &Scheduler{
		Site:            site,
		PackageVersions: "scheduler=1.0.0",
		bus:             bus,
		log:             logger.OrDefault(log),
		state:           models.StateOffline,
		configTopics:    make(map[string]int),
	}
}

var listenTopics = []string{
	sal.CommandTopic(sal.CmdEnterControl),
	sal.CommandTopic(sal.CmdStart),
	sal.CommandTopic(sal.CmdEnable),
	sal.TopicTimeHandler,
	sal.TopicObservatoryState,
	sal.TopicBulkCloud,
	sal.TopicSeeing,
	sal.TopicObservation,
	sal.TopicSchedulerConfig,
	sal.TopicDriverConfig,
	sal.TopicObsSiteConfig,
	sal.TopicTelescopeConfig,
	sal.TopicDomeConfig,
	sal.TopicRotatorConfig,
	sal.TopicCameraConfig,
	sal.TopicSlewConfig,
	sal.TopicOpticsLoopCorrConfig,
	sal.TopicParkConfig,
	sal.TopicSurveyTopology,
	sal.TopicGeneralPropConfig,
	sal.TopicSequencePropConfig,
}

// Start subscribes and serves until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	sub, err := s.bus.Subscribe(ctx, listenTopics...)
	if err != nil {
		return err
	}
	s.sub = sub
	s.done = make(chan struct{})
	go s.serve(ctx)
	return nil
}

// Stop detaches the scheduler and waits for it to exit
func (s *Scheduler) Stop() {
	if s.sub == nil {
		return
	}
	s.sub.Close()
	<-s.done
}

func (s *Scheduler) serve(ctx context.Context) {
	defer close(s.done)
	for {
		msg, err := s.sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, sal.ErrBusClosed) && ctx.Err() == nil {
				s.log.Warn("scheduler stopped", "error", err)
			}
			return
		}
		if err := s.handle(ctx, msg); err != nil {
			s.log.Warn("scheduler failed to handle message", "topic", msg.Topic, "error", err)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, msg sal.Message) error {
	switch msg.Topic {
	case sal.CommandTopic(sal.CmdEnterControl), sal.CommandTopic(sal.CmdStart), sal.CommandTopic(sal.CmdEnable):
		var cmd sal.Command
		if err := msg.Decode(&cmd); err != nil {
			return err
		}
		return s.command(ctx, cmd)

	case sal.TopicTimeHandler:
		var th models.TimeHandlerTopic
		if err := msg.Decode(&th); err != nil {
			return err
		}
		s.mu.Lock()
		s.request.Night = th.Night
		s.request.Timestamp = th.Timestamp
		s.mu.Unlock()
		if s.SilentSwaps {
			return nil
		}
		return s.publish(ctx, sal.TopicFilterSwap, sal.KindEvent, s.swapFor(th.Night))

	case sal.TopicObservatoryState:
		var st models.ObservatoryState
		if err := msg.Decode(&st); err != nil {
			return err
		}
		s.mu.Lock()
		s.request.Observatory = st
		s.mu.Unlock()
		return nil

	case sal.TopicBulkCloud:
		var c models.BulkCloud
		if err := msg.Decode(&c); err != nil {
			return err
		}
		s.mu.Lock()
		s.request.Cloud = c.BulkCloud
		s.mu.Unlock()
		return nil

	case sal.TopicSeeing:
		var see models.Seeing
		if err := msg.Decode(&see); err != nil {
			return err
		}
		s.mu.Lock()
		s.request.Seeing = see.Seeing
		s.request.Count++
		req := s.request
		s.mu.Unlock()
		if s.SilentTargets {
			return nil
		}
		target := s.targetFor(req)
		s.mu.Lock()
		s.targets = append(s.targets, target)
		s.mu.Unlock()
		return s.publish(ctx, sal.TopicTarget, sal.KindEvent, target)

	case sal.TopicObservation:
		var obs models.Observation
		if err := msg.Decode(&obs); err != nil {
			return err
		}
		s.mu.Lock()
		s.observations = append(s.observations, obs)
		target := s.lastTarget()
		s.mu.Unlock()
		if s.SilentProposals {
			return nil
		}
		return s.publish(ctx, sal.TopicInterestedProposal, sal.KindTelemetry, interested(obs, target))

	default:
		s.mu.Lock()
		s.configTopics[msg.Topic]++
		s.mu.Unlock()
		return nil
	}
}

func (s *Scheduler) command(ctx context.Context, cmd sal.Command) error {
	if cmd.Name == s.FailCommand {
		return s.publish(ctx, sal.TopicAck, sal.KindEvent, sal.Ack{CmdID: cmd.CmdID, Ack: sal.AckFailed, Result: "rejected"})
	}

	next := -1
	switch cmd.Name {
	case sal.CmdEnterControl:
		next = models.StateStandby
	case sal.CmdStart:
		if err := s.publish(ctx, sal.TopicValidSettings, sal.KindEvent, models.ValidSettings{PackageVersions: s.PackageVersions}); err != nil {
			return err
		}
		next = models.StateDisable
	case sal.CmdEnable:
		next = models.StateEnable
	}
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	if err := s.publish(ctx, sal.TopicAck, sal.KindEvent, sal.Ack{CmdID: cmd.CmdID, Ack: sal.AckComplete, Result: "done"}); err != nil {
		return err
	}
	return s.publish(ctx, sal.TopicSummaryState, sal.KindEvent, models.SummaryState{SummaryState: next})
}

func (s *Scheduler) targetFor(req Request) models.Target {
	if s.Target != nil {
		return s.Target(req)
	}
	return Target(s.Site, req)
}

func (s *Scheduler) swapFor(night int) models.FilterSwap {
	if s.FilterSwap != nil {
		return s.FilterSwap(night)
	}
	return NoSwap()
}

// lastTarget must be called with mu held
func (s *Scheduler) lastTarget() models.Target {
	if len(s.targets) == 0 {
		return models.Target{TargetID: models.NoTarget}
	}
	return s.targets[len(s.targets)-1]
}

func (s *Scheduler) publish(ctx context.Context, topic string, kind sal.Kind, v any) error {
	msg, err := sal.NewMessage(topic, kind, v)
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, msg)
}

func interested(obs models.Observation, target models.Target) models.InterestedProposal {
	ip := models.InterestedProposal{ObservationID: obs.ObservationID}
	if obs.ObservationID == models.NoTarget || target.TargetID != obs.TargetID {
		return ip
	}
	ip.NumProposals = len(target.ProposalIDs)
	ip.ProposalIDs = target.ProposalIDs
	ip.ProposalValues = target.ProposalValues
	ip.ProposalNeeds = target.ProposalNeeds
	ip.ProposalBonuses = target.ProposalBonuses
	ip.ProposalBoosts = target.ProposalBoosts
	return ip
}

// Target points near the zenith in the currently selected filter
func Target(site astro.Site, req Request) models.Target {
	lst := astro.LST(astro.FromTimestamp(req.Timestamp), site.Longitude)
	ra, dec := astro.ToEquatorial(80, 0, lst, site.Latitude)
	filter := req.Observatory.FilterPosition
	if filter == "" {
		filter = "r"
	}
	return models.Target{
		TargetID:        req.Count,
		RequestTime:     req.Timestamp,
		FieldID:         1,
		Filter:          filter,
		RA:              ra,
		Dec:             dec,
		NumExposures:    2,
		ExposureTimes:   []float64{15, 15},
		NumProposals:    1,
		ProposalIDs:     []int{1},
		ProposalValues:  []float64{0.5},
		ProposalNeeds:   []float64{0.25},
		ProposalBonuses: []float64{0.1},
		ProposalBoosts:  []float64{1},
	}
}

// NoTargetReply is the scheduler's nothing-to-observe answer
func NoTargetReply(req Request) models.Target {
	return models.Target{TargetID: models.NoTarget, RequestTime: req.Timestamp, NumExposures: 1}
}

// NoSwap is a ready filter swap reply that swaps nothing
func NoSwap() models.FilterSwap {
	return models.FilterSwap{NeedSwap: false, FilterToUnmount: "none"}
}

// State is the scheduler's summary state
func (s *Scheduler) State() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConfigTopics counts configuration publications by topic
func (s *Scheduler) ConfigTopics() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.configTopics))
	for k, v := range s.configTopics {
		out[k] = v
	}
	return out
}

// Observations returns every observation received
func (s *Scheduler) Observations() []models.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Observation(nil), s.observations...)
}

// Targets returns every target sent
func (s *Scheduler) Targets() []models.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Target(nil), s.targets...)
}
