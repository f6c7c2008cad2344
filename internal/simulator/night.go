package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/database"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/environment"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/timehandler"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// downtimeMargin pushes the clock past sunrise on a dark night
const downtimeMargin = 60.0

// startNight moves the clock to sunset and reports whether the night is
// lost to downtime, in which case the clock is already past sunrise.
func (s *Simulator) startNight(ctx context.Context, night int) (bool, error) {
	sunset, sunrise, err := s.sky.NightBoundaries(s.th.CurrentTimestamp(), s.cfg.Survey.TwilightAngle)
	if err != nil {
		return false, fmt.Errorf("night %d: %w", night, err)
	}
	s.th.AdvanceTo(sunset)
	s.endOfNight = sunrise
	s.night = night
	s.nightVisits = 0
	s.seq.StartNight(night)
	s.db.ClearData()
	s.run.Update(func(r *models.RunSummary) { r.Nights++ })

	down := s.downtime.GetDowntime(night)
	if down == 0 {
		s.recorder.NightStarted(night, false)
		s.log.Info("night started", "night", night, "sunset", s.th.CurrentTimeString(),
			"hours", (s.endOfNight-s.th.CurrentTimestamp())/3600)
		return false, nil
	}

	s.recorder.NightStarted(night, true)
	s.run.Update(func(r *models.RunSummary) { r.DarkNights++ })
	s.log.Info("night lost to downtime", "night", night, "remaining", down)

	if err := s.publishTime(ctx, true, float64(down)); err != nil {
		return true, err
	}
	if err := s.publishObservatoryState(ctx); err != nil {
		return true, err
	}
	if err := s.th.UpdateTime(s.endOfNight-s.th.CurrentTimestamp()+downtimeMargin, timehandler.Seconds); err != nil {
		return true, err
	}
	s.recorder.TimeAdvanced(s.th.CurrentTimestamp())
	return true, nil
}

// observeNight runs the target loop until sunrise
func (s *Simulator) observeNight(ctx context.Context) error {
	for s.th.CurrentTimestamp() < s.endOfNight {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.visit(ctx); err != nil {
			return err
		}
		s.recorder.TimeAdvanced(s.th.CurrentTimestamp())
	}
	return nil
}

// visit is one request/observe/attribute cycle
func (s *Simulator) visit(ctx context.Context) error {
	if err := s.publishTime(ctx, false, 0); err != nil {
		return err
	}
	if err := s.publishObservatoryState(ctx); err != nil {
		return err
	}
	if err := s.publishEnvironment(ctx); err != nil {
		return err
	}

	target, err := s.nextTarget(ctx)
	if err != nil {
		return err
	}

	obs, slewInfo, exposureInfo, err := s.seq.ObserveTarget(&target, s.th)
	if err != nil {
		// a target in a filter that is not mounted costs the idle delay,
		// like an empty one
		s.log.Warn("target rejected", "night", s.night, "target_id", target.TargetID, "error", err)
		if err := s.th.UpdateTime(s.cfg.Survey.IdleDelay, timehandler.Seconds); err != nil {
			return err
		}
		obs, slewInfo, exposureInfo = models.EmptyObservation(), nil, nil
	}
	obs.Night = s.night
	if obs.ObservationID != models.NoTarget {
		s.enrich(&obs, &target)
	}

	if err := s.proxy.Publish(ctx, sal.TopicObservation, obs); err != nil {
		return err
	}
	ip, err := s.interestedProposal(ctx, obs.ObservationID)
	if err != nil {
		return err
	}

	if target.IsEmpty() || obs.ObservationID == models.NoTarget {
		return nil
	}
	if err := s.appendVisit(&target, obs, ip, slewInfo, exposureInfo); err != nil {
		return err
	}
	s.nightVisits++
	s.recorder.Observed(obs)
	return nil
}

// nextTarget waits for the scheduler's selection. Silence is fatal.
func (s *Simulator) nextTarget(ctx context.Context) (models.Target, error) {
	var target models.Target
	start := time.Now()
	err := s.proxy.Poll(ctx, sal.TopicTarget, s.cfg.Survey.SchedulerTimeoutDuration(), &target,
		func() bool { return target.NumExposures != 0 })
	if err != nil {
		if errors.Is(err, sal.ErrSchedulerTimeout) {
			s.log.Error("scheduler stopped sending targets", "night", s.night,
				"timestamp", s.th.CurrentTimestamp(), "error", err)
		}
		return target, err
	}
	s.recorder.TargetReceived(target.IsEmpty(), time.Since(start).Seconds())
	return target, nil
}

// interestedProposal reads the attribution reply for obsID. A missing reply
// yields an empty attribution.
func (s *Simulator) interestedProposal(ctx context.Context, obsID int) (models.InterestedProposal, error) {
	var ip models.InterestedProposal
	err := s.proxy.Poll(ctx, sal.TopicInterestedProposal, s.cfg.Survey.InterestedProposalTimeoutDuration(), &ip,
		func() bool { return ip.ObservationID == obsID })
	if errors.Is(err, sal.ErrSchedulerTimeout) {
		s.replyMissing(sal.TopicInterestedProposal, "observation_id", obsID)
		return models.InterestedProposal{ObservationID: obsID}, nil
	}
	return ip, err
}

func (s *Simulator) replyMissing(topic string, args ...any) {
	s.recorder.ReplyMissing(topic)
	s.run.Update(func(r *models.RunSummary) { r.MissingReplies++ })
	s.log.Warn("scheduler reply missing", append([]any{"topic", topic, "night", s.night}, args...)...)
}

// enrich fills the environment and attribution fields of an observation
func (s *Simulator) enrich(obs *models.Observation, target *models.Target) {
	delta := obs.StartTime - s.th.InitialTimestamp()
	obs.Cloud = s.cloud.GetCloud(delta)
	see := s.seeing.CalculateSeeing(delta, obs.Filter, obs.AirMass)
	obs.SeeingFwhm500 = see.Fwhm500
	obs.SeeingFwhmGeom = see.FwhmGeom
	obs.SeeingFwhmEff = see.FwhmEff
	obs.FiveSigmaDepth = environment.FiveSigmaDepth(obs.Filter, obs.SkyBrightness, see.FwhmEff, obs.VisitExpTime, obs.AirMass)
	if math.IsNaN(obs.FiveSigmaDepth) {
		// unknown filter or no seeing; NaN cannot be published
		obs.FiveSigmaDepth = 0
	}
	obs.NumProposals = len(target.ProposalIDs)
	obs.ProposalIDs = append([]int(nil), target.ProposalIDs...)
	obs.Note = s.note(target.ProposalIDs)
}

// note names the proposals a visit was taken for
func (s *Simulator) note(ids []int) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := s.proposals[id]; ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

type pendingRow struct {
	table  string
	record any
}

// appendVisit queues every history row of an executed visit
func (s *Simulator) appendVisit(target *models.Target, obs models.Observation, ip models.InterestedProposal,
	slew *models.SlewInfo, exposures *models.ExposureInfo) error {
	rows := []pendingRow{
		{database.TableTargetHistory, models.NewTargetHistory(target, s.night)},
		{database.TableObsHistory, obs},
	}
	if slew != nil {
		rows = append(rows,
			pendingRow{database.TableSlewHistory, slew.History},
			pendingRow{database.TableSlewInitialState, slew.Initial},
			pendingRow{database.TableSlewFinalState, slew.Final},
			pendingRow{database.TableSlewMaxSpeeds, slew.MaxSpeeds},
		)
	}
	for _, r := range rows {
		if err := s.db.AppendData(r.table, r.record); err != nil {
			return err
		}
	}

	if slew != nil {
		for _, a := range slew.Activities {
			if err := s.db.AppendData(database.TableSlewActivities, a); err != nil {
				return err
			}
		}
	}
	if exposures != nil {
		for _, e := range exposures.Target {
			if err := s.db.AppendData(database.TableTargetExposures, e); err != nil {
				return err
			}
		}
		for _, e := range exposures.Observation {
			if err := s.db.AppendData(database.TableObsExposures, e); err != nil {
				return err
			}
		}
	}

	for _, h := range ip.ProposalHistories() {
		s.obsPropHistID++
		h.PropHistID = s.obsPropHistID
		if err := s.db.AppendData(database.TableObsProposalHistory, h); err != nil {
			return err
		}
	}
	for _, h := range target.ProposalHistories() {
		s.targetPropHistID++
		h.PropHistID = s.targetPropHistID
		if err := s.db.AppendData(database.TableTargetProposalHistory, h); err != nil {
			return err
		}
	}
	return nil
}

// endNight flushes the night's rows and parks the telescope
func (s *Simulator) endNight(ctx context.Context) error {
	rows := s.db.PendingRows()
	if err := s.write(ctx); err != nil {
		return err
	}
	s.seq.EndNight()
	s.recorder.NightEnded(rows, s.nightVisits, s.th.CurrentTimestamp())
	s.log.Debug("night ended", "night", s.night, "visits", s.nightVisits, "rows", rows)
	return nil
}

// startDay asks the scheduler for a filter swap. Silence means no swap.
func (s *Simulator) startDay(ctx context.Context) error {
	// every in-night time publication drew a swap reply; only this one counts
	s.proxy.Drain(sal.TopicFilterSwap)
	if err := s.publishTime(ctx, false, 0); err != nil {
		return err
	}

	var swap models.FilterSwap
	err := s.proxy.Poll(ctx, sal.TopicFilterSwap, s.cfg.Survey.FilterSwapTimeoutDuration(), &swap,
		func() bool { return swap.FilterToUnmount != "" })
	if errors.Is(err, sal.ErrSchedulerTimeout) {
		s.replyMissing(sal.TopicFilterSwap)
		return nil
	}
	if err != nil {
		return err
	}

	before := s.seq.Counters().FilterSwaps
	s.seq.StartDay(swap)
	if s.seq.Counters().FilterSwaps > before {
		s.recorder.FilterSwapped()
		s.log.Info("filter swapped", "night", s.night, "unmount", swap.FilterToUnmount, "mount", swap.FilterToMount)
	}
	return nil
}

func (s *Simulator) publishTime(ctx context.Context, isDown bool, downDuration float64) error {
	return s.proxy.Publish(ctx, sal.TopicTimeHandler, models.TimeHandlerTopic{
		Timestamp:    s.th.CurrentTimestamp(),
		Night:        s.night,
		IsDown:       isDown,
		DownDuration: downDuration,
	})
}

func (s *Simulator) publishObservatoryState(ctx context.Context) error {
	return s.proxy.Publish(ctx, sal.TopicObservatoryState, s.seq.GetObservatoryState(s.th.CurrentTimestamp()))
}

func (s *Simulator) publishEnvironment(ctx context.Context) error {
	ts := s.th.CurrentTimestamp()
	delta := s.th.TimeSinceStart()
	if err := s.proxy.Publish(ctx, sal.TopicBulkCloud, models.BulkCloud{Timestamp: ts, BulkCloud: s.cloud.GetCloud(delta)}); err != nil {
		return err
	}
	return s.proxy.Publish(ctx, sal.TopicSeeing, models.Seeing{Timestamp: ts, Seeing: s.seeing.GetSeeing(delta)})
}
