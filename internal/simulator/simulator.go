// Package simulator drives a survey night by night: it walks the scheduler
// through its start-up ladder, exchanges time, telemetry, targets and
// observations with it over the middleware, and persists every visit.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/database"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/downtime"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/environment"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/observatory"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/sequencer"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/timehandler"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

var (
	// ErrDatabase wraps every fatal persistence failure
	ErrDatabase = errors.New("database error")
	// ErrInvalidSettings is returned when the scheduler reports a malformed package version
	ErrInvalidSettings = fmt.Errorf("%w: invalid scheduler settings", config.ErrConfigurationInvalid)
)

// Recorder receives run events for metrics
type Recorder interface {
	SessionStarted(id int)
	NightStarted(night int, dark bool)
	NightEnded(rows, visits int, timestamp float64)
	TimeAdvanced(timestamp float64)
	TargetReceived(empty bool, waitSeconds float64)
	Observed(obs models.Observation)
	FilterSwapped()
	ReplyMissing(topic string)
	WriteFailed(table string)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(int) {}
func (nopRecorder) NightStarted(int, bool) {}
func (nopRecorder) NightEnded(int, int, float64) {}
func (nopRecorder) TimeAdvanced(float64) {}
func (nopRecorder) TargetReceived(bool, float64) {}
func (nopRecorder) Observed(models.Observation) {}
func (nopRecorder) FilterSwapped() {}
func (nopRecorder) ReplyMissing(string) {}
func (nopRecorder) WriteFailed(string) {}

// Option configures a Simulator
type Option func(*Simulator)

// WithRecorder routes run events to r
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithComment sets the session run comment
func WithComment(comment string) Option {
	return func(s *Simulator) { s.comment = comment }
}

// Simulator is the single driver of one survey run
type Simulator struct {
	cfg      *config.Config
	bus      sal.Bus
	db       *database.Database
	recorder Recorder
	comment  string
	log      *slog.Logger
	run      *RunManager

	proxy     *sal.Proxy
	th        *timehandler.TimeHandler
	sky       *observatory.SkyModel
	seq       *sequencer.Sequencer
	cloud     *environment.Cloud
	seeing    *environment.Seeing
	downtime  *downtime.Handler
	proposals map[int]string

	duration         int
	night            int
	endOfNight       float64
	nightVisits      int
	obsPropHistID    int
	targetPropHistID int
}

// New creates a simulator for cfg. The bus carries the scheduler traffic
// and db must have an open tracking store.
func New(cfg *config.Config, bus sal.Bus, db *database.Database, log *slog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:       cfg,
		bus:       bus,
		db:        db,
		recorder:  nopRecorder{},
		log:       logger.OrDefault(log),
		run:       NewRunManager(context.Background()),
		duration:  cfg.Survey.DurationNights(),
		proposals: make(map[int]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range cfg.Proposals.Records() {
		s.proposals[p.PropID] = p.PropName
	}
	return s
}

// Duration is the number of nights the run covers
func (s *Simulator) Duration() int {
	return s.duration
}

// Summary returns the run totals so far
func (s *Simulator) Summary() models.RunSummary {
	summary := s.run.Summary()
	if s.seq != nil {
		c := s.seq.Counters()
		summary.TargetsReceived = c.TargetsReceived
		summary.TargetsMissed = c.TargetsMissed
		summary.ObservationsMade = c.ObservationsMade
		summary.FilterSwaps = c.FilterSwaps
	}
	return summary
}

// Execute runs the whole lifecycle and records the outcome on the tracking
// store. The returned summary is valid even when err is not nil.
func (s *Simulator) Execute(ctx context.Context) (models.RunSummary, error) {
	s.run = NewRunManager(ctx)
	defer s.run.Cancel()
	s.run.Start()

	err := s.Initialize(s.run.Context())
	if err == nil {
		err = s.Run(s.run.Context())
	}
	s.Finalize()

	status := models.RunStatusCompleted
	detail := ""
	if err != nil {
		status = models.RunStatusFailed
		detail = err.Error()
		s.run.Fail(err)
	} else {
		s.run.Complete()
	}
	if s.db.Session().SessionID != 0 {
		// the run context may already be cancelled
		if ferr := s.db.Finish(context.WithoutCancel(ctx), status, detail); ferr != nil {
			s.log.Error("failed to record run status", "session_id", s.db.Session().SessionID, "error", ferr)
			if err == nil {
				err = fmt.Errorf("%w: %w", ErrDatabase, ferr)
			}
		}
	}
	return s.Summary(), err
}

// Initialize opens the session, brings the scheduler to DISABLE, publishes
// the configuration and builds the simulation components.
func (s *Simulator) Initialize(ctx context.Context) error {
	sess, err := s.db.NewSession(ctx, s.cfg.Version, s.comment)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	s.run.SetSession(sess.SessionID)
	s.recorder.SessionStarted(sess.SessionID)
	s.log = s.log.With("session_id", sess.SessionID)

	base, maxDelay := s.cfg.Survey.PollIntervals()
	s.proxy = sal.NewProxy(s.bus, utils.NewBackoff(s.cfg.Survey.PollBackoff, base, maxDelay), s.log)
	for _, topic := range []string{sal.TopicSummaryState, sal.TopicValidSettings, sal.TopicTarget, sal.TopicFilterSwap} {
		if err := s.proxy.SubscribeEvent(ctx, topic); err != nil {
			return err
		}
	}
	if err := s.proxy.SubscribeTelemetry(ctx, sal.TopicInterestedProposal); err != nil {
		return err
	}

	if err := s.command(ctx, sal.CmdEnterControl, "", models.StateStandby); err != nil {
		return err
	}
	if err := s.command(ctx, sal.CmdStart, s.cfg.Version, models.StateDisable); err != nil {
		return err
	}
	if err := s.checkSettings(ctx); err != nil {
		return err
	}
	if err := s.publishConfig(ctx); err != nil {
		return err
	}
	if err := s.build(ctx); err != nil {
		return err
	}

	s.log.Info("simulator initialized", "nights", s.duration, "start", s.th.CurrentTimeString())
	return nil
}

// command sends name, waits for its acknowledgement and then for the
// scheduler to report state
func (s *Simulator) command(ctx context.Context, name, settings string, state int) error {
	timeout := s.cfg.Survey.SchedulerTimeoutDuration()
	id, err := s.proxy.SendCommand(ctx, name, settings)
	if err != nil {
		return err
	}
	if err := s.proxy.WaitForCompletion(ctx, id, timeout); err != nil {
		s.log.Error("scheduler command failed", "command", name, "error", err)
		return err
	}

	var st models.SummaryState
	err = s.proxy.Poll(ctx, sal.TopicSummaryState, timeout, &st, func() bool { return st.SummaryState == state })
	if err != nil {
		s.log.Error("scheduler did not reach state", "state", models.SummaryStateName(state), "error", err)
		return err
	}
	s.log.Info("scheduler state", "state", models.SummaryStateName(state))
	return nil
}

// checkSettings validates the package versions the scheduler reports after
// start. A scheduler that never reports them is tolerated.
func (s *Simulator) checkSettings(ctx context.Context) error {
	var vs models.ValidSettings
	err := s.proxy.Poll(ctx, sal.TopicValidSettings, s.cfg.Survey.InterestedProposalTimeoutDuration(), &vs, nil)
	if errors.Is(err, sal.ErrSchedulerTimeout) {
		s.log.Warn("scheduler sent no valid settings")
		return nil
	}
	if err != nil {
		return err
	}
	versions, err := ParsePackageVersions(vs.PackageVersions)
	if err != nil {
		return err
	}
	for name, v := range versions {
		s.log.Info("scheduler package", "package", name, "version", v.String())
	}
	return nil
}

// ParsePackageVersions parses a comma-separated list of name=version
// pairs. Every version must be a semantic version.
func ParsePackageVersions(list string) (map[string]*semver.Version, error) {
	versions := make(map[string]*semver.Version)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, raw, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not name=version", ErrInvalidSettings, item)
		}
		v, err := semver.NewVersion(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, name, err)
		}
		versions[strings.TrimSpace(name)] = v
	}
	return versions, nil
}

// build creates the clock, models, environment and downtime, and writes
// the downtime rows
func (s *Simulator) build(ctx context.Context) error {
	start := s.cfg.Start()
	s.th = timehandler.NewFromTime(start)
	s.sky = observatory.NewSkyModel(s.cfg.Site, s.cfg.Sky)
	model := observatory.NewModel(s.cfg, s.sky, s.log)
	s.seq = sequencer.New(model, s.sky, s.cfg.Survey.IdleDelay, s.log)

	var err error
	if s.cloud, err = environment.LoadCloud(ctx, s.cfg.Environment.CloudDB, start); err != nil {
		return err
	}
	if s.seeing, err = environment.LoadSeeing(ctx, s.cfg.Environment.SeeingDB, start, s.cfg.Seeing); err != nil {
		return err
	}

	scheduled := downtime.NewScheduled(s.log)
	if err := scheduled.Initialize(ctx, s.cfg.Downtime.ScheduledDB); err != nil {
		if !errors.Is(err, downtime.ErrScheduleMissing) {
			return err
		}
		s.log.Warn("scheduled downtime unavailable, assuming none", "error", err)
	}
	unscheduled := downtime.NewUnscheduled(s.log)
	unscheduled.Initialize(s.cfg.Downtime.UnscheduledUseRandomSeed, s.cfg.Downtime.UnscheduledRandomSeed, s.duration)

	s.db.ClearData()
	for _, e := range scheduled.ListAll() {
		if err := s.db.AppendData(database.TableScheduledDowntime, e); err != nil {
			return err
		}
	}
	for _, e := range unscheduled.ListAll() {
		if err := s.db.AppendData(database.TableUnscheduledDowntime, e); err != nil {
			return err
		}
	}
	if err := s.write(ctx); err != nil {
		return err
	}

	s.downtime = downtime.NewHandler(scheduled, unscheduled, s.log)
	return nil
}

// write flushes the batch. Every table is attempted before a rejected
// batch fails the run.
func (s *Simulator) write(ctx context.Context) error {
	err := s.db.Write(ctx)
	var werr *database.WriteError
	if errors.As(err, &werr) {
		for _, f := range werr.Failures {
			s.recorder.WriteFailed(f.Table)
		}
		s.run.Update(func(r *models.RunSummary) { r.WriteFailures += len(werr.Failures) })
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	return nil
}

// Run enables the scheduler, records the configuration and simulates every
// night of the survey
func (s *Simulator) Run(ctx context.Context) error {
	if s.seq == nil {
		return errors.New("simulator is not initialized")
	}
	if err := s.command(ctx, sal.CmdEnable, "", models.StateEnable); err != nil {
		return err
	}
	if err := s.saveConfiguration(ctx); err != nil {
		return err
	}

	for night := 1; night <= s.duration; night++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		down, err := s.startNight(ctx, night)
		if err != nil {
			return err
		}
		if !down {
			if err := s.observeNight(ctx); err != nil {
				return err
			}
		}
		if err := s.endNight(ctx); err != nil {
			return err
		}
		if err := s.startDay(ctx); err != nil {
			return err
		}
	}
	s.log.Info("survey complete", "nights", s.duration, "end", s.th.CurrentTimeString())
	return nil
}

// saveConfiguration writes the Config, Proposal, Field and ProposalField rows
func (s *Simulator) saveConfiguration(ctx context.Context) error {
	params, err := s.cfg.Params()
	if err != nil {
		return err
	}
	s.db.ClearData()
	for _, p := range params {
		if err := s.db.AppendData(database.TableConfig, p); err != nil {
			return err
		}
	}
	for _, p := range s.cfg.Proposals.Records() {
		if err := s.db.AppendData(database.TableProposal, p); err != nil {
			return err
		}
	}
	fields, links := s.cfg.Proposals.FieldRecords()
	for _, f := range fields {
		if err := s.db.AppendData(database.TableField, f); err != nil {
			return err
		}
	}
	for _, l := range links {
		if err := s.db.AppendData(database.TableProposalField, l); err != nil {
			return err
		}
	}
	return s.write(ctx)
}

// Finalize releases the sequencer and the middleware subscriptions
func (s *Simulator) Finalize() {
	if s.seq != nil {
		s.seq.Finalize()
	}
	if s.proxy != nil {
		s.proxy.Finalize()
	}
}
