// Package sequencer turns scheduler targets into simulated observations.
package sequencer

import (
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/observatory"
	"github.com/GoSim-25-26J-441/opsim-driver/internal/timehandler"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/logger"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// ObservatoryModel is the kinematic model driven by the sequencer
type ObservatoryModel interface {
	Slew(target *models.Target, ts float64) (observatory.Slew, error)
	Observe(target *models.Target, ts float64) observatory.Visit
	ObservatoryState(ts float64) models.ObservatoryState
	SwapFilter(unmount, mount string) error
	Park()
}

// SkyModel supplies the sky at the observation start
type SkyModel interface {
	Horizontal(ts, ra, dec float64) astro.Horizontal
	Geometry(ts, ra, dec float64) models.SkyGeometry
	Brightness(ts, ra, dec float64, filter string) float64
}

// Counters are the per-session totals
type Counters struct {
	TargetsReceived  int
	TargetsMissed    int
	ObservationsMade int
	FilterSwaps      int
}

// Sequencer mediates between targets and the observatory model
type Sequencer struct {
	model     ObservatoryModel
	sky       SkyModel
	idleDelay float64
	log       *slog.Logger

	counters       Counters
	slewCount      int
	slewActivityID int
	targetExpID    int
	obsExpID       int
	night          int
}

// New creates a sequencer. idleDelay is the time in seconds spent waiting
// when the scheduler has no target.
func New(model ObservatoryModel, sky SkyModel, idleDelay float64, log *slog.Logger) *Sequencer {
	return &Sequencer{
		model:     model,
		sky:       sky,
		idleDelay: idleDelay,
		log:       logger.OrDefault(log),
	}
}

// Counters returns the session totals
func (s *Sequencer) Counters() Counters {
	return s.counters
}

// StartNight records the night index
func (s *Sequencer) StartNight(night int) {
	s.night = night
	s.log.Debug("sequencer night start", "night", night)
}

// EndNight parks the telescope
func (s *Sequencer) EndNight() {
	s.model.Park()
	s.log.Debug("sequencer night end", "night", s.night)
}

// StartDay applies a requested filter swap. A swap the observatory cannot
// perform is logged and skipped.
func (s *Sequencer) StartDay(swap models.FilterSwap) {
	if !swap.NeedSwap {
		return
	}
	if err := s.model.SwapFilter(swap.FilterToUnmount, swap.FilterToMount); err != nil {
		s.log.Warn("filter swap rejected", "unmount", swap.FilterToUnmount, "mount", swap.FilterToMount, "error", err)
		return
	}
	s.counters.FilterSwaps++
}

// GetObservatoryState returns the observatory at ts
func (s *Sequencer) GetObservatoryState(ts float64) models.ObservatoryState {
	return s.model.ObservatoryState(ts)
}

// Finalize logs the session totals
func (s *Sequencer) Finalize() {
	s.log.Info("sequencer finished",
		"targets_received", s.counters.TargetsReceived,
		"targets_missed", s.counters.TargetsMissed,
		"observations_made", s.counters.ObservationsMade,
		"filter_swaps", s.counters.FilterSwaps)
}

// ObserveTarget slews to and exposes on the target, advancing th by the
// slew and visit times. A no-target sentinel advances th by the idle delay
// and returns an observation with id -1 and nil slew and exposure info.
func (s *Sequencer) ObserveTarget(target *models.Target, th *timehandler.TimeHandler) (models.Observation, *models.SlewInfo, *models.ExposureInfo, error) {
	s.counters.TargetsReceived++

	if target.IsEmpty() {
		if err := th.UpdateTime(s.idleDelay, timehandler.Seconds); err != nil {
			return models.Observation{}, nil, nil, err
		}
		s.counters.TargetsMissed++
		s.log.Debug("no target, idling", "idle_delay", s.idleDelay, "timestamp", th.CurrentTimestamp())
		return models.EmptyObservation(), nil, nil, nil
	}

	start := th.CurrentTimestamp()
	slew, err := s.model.Slew(target, start)
	if err != nil {
		return models.Observation{}, nil, nil, fmt.Errorf("failed to slew to target %d: %w", target.TargetID, err)
	}
	if err := th.UpdateTime(slew.Time, timehandler.Seconds); err != nil {
		return models.Observation{}, nil, nil, err
	}

	obsStart := th.CurrentTimestamp()
	visit := s.model.Observe(target, obsStart)
	if err := th.UpdateTime(visit.VisitTime, timehandler.Seconds); err != nil {
		return models.Observation{}, nil, nil, err
	}

	s.counters.ObservationsMade++
	s.slewCount++
	obsID := s.counters.ObservationsMade

	obs := models.Observation{
		ObservationID:  obsID,
		StartTime:      obsStart,
		Night:          s.night,
		TargetID:       target.TargetID,
		FieldID:        target.FieldID,
		Filter:         target.Filter,
		RA:             target.RA,
		Dec:            target.Dec,
		Angle:          target.Angle,
		NumExposures:   len(target.ExposureTimes),
		ExposureTimes:  append([]float64(nil), target.ExposureTimes...),
		ExposureStarts: visit.ExposureStarts,
		VisitTime:      visit.VisitTime,
		VisitExpTime:   visit.ExposureTime,
		SlewTime:       slew.Time,
	}
	h := s.sky.Horizontal(obsStart, target.RA, target.Dec)
	obs.Altitude, obs.Azimuth = h.Alt, h.Az
	obs.AirMass = astro.Airmass(h.Alt)
	obs.SkyBrightness = s.sky.Brightness(obsStart, target.RA, target.Dec, target.Filter)
	obs.SkyGeometry = s.sky.Geometry(obsStart, target.RA, target.Dec)

	slewInfo := s.slewInfo(slew, obsID)
	exposureInfo := s.exposureInfo(target, visit, obsID)

	s.log.Debug("observed target",
		"target_id", target.TargetID,
		"observation_id", obsID,
		"slew_time", slew.Time,
		"visit_time", visit.VisitTime)
	return obs, slewInfo, exposureInfo, nil
}

func (s *Sequencer) slewInfo(slew observatory.Slew, obsID int) *models.SlewInfo {
	info := &models.SlewInfo{
		History: models.SlewHistory{
			SlewCount:     s.slewCount,
			StartDate:     slew.Start,
			EndDate:       slew.Start + slew.Time,
			SlewTime:      slew.Time,
			SlewDistance:  slew.Distance,
			ObservationID: obsID,
		},
		Initial: slewState(slew.Initial, s.slewCount),
		Final:   slewState(slew.Final, s.slewCount),
		MaxSpeeds: models.SlewMaxSpeeds{
			SlewMaxSpeedID: s.slewCount,
			DomeAltSpeed:   slew.MaxSpeeds.DomeAlt,
			DomeAzSpeed:    slew.MaxSpeeds.DomeAz,
			TelAltSpeed:    slew.MaxSpeeds.TelAlt,
			TelAzSpeed:     slew.MaxSpeeds.TelAz,
			RotatorSpeed:   slew.MaxSpeeds.Rotator,
			SlewCount:      s.slewCount,
		},
	}
	for _, act := range slew.Activities {
		s.slewActivityID++
		info.Activities = append(info.Activities, models.SlewActivity{
			SlewActivityID: s.slewActivityID,
			Activity:       act.Name,
			ActDelay:       act.Delay,
			InCriticalPath: act.InCriticalPath,
			SlewCount:      s.slewCount,
		})
	}
	return info
}

func slewState(st observatory.State, slewCount int) models.SlewState {
	return models.SlewState{
		SlewStateID:   slewCount,
		SlewStateDate: st.Time,
		TargetRA:      st.RA,
		TargetDec:     st.Dec,
		Tracking:      st.Tracking,
		Altitude:      st.Alt,
		Azimuth:       st.Az,
		ParAngle:      st.PA,
		DomeAlt:       st.DomeAlt,
		DomeAz:        st.DomeAz,
		TelAlt:        st.TelAlt,
		TelAz:         st.TelAz,
		RotTelPos:     st.TelRot,
		RotSkyPos:     st.Angle,
		Filter:        st.Filter,
		SlewCount:     slewCount,
	}
}

func (s *Sequencer) exposureInfo(target *models.Target, visit observatory.Visit, obsID int) *models.ExposureInfo {
	info := &models.ExposureInfo{}
	for i, exp := range target.ExposureTimes {
		s.targetExpID++
		info.Target = append(info.Target, models.TargetExposure{
			ExposureID:   s.targetExpID,
			ExposureNum:  i + 1,
			ExposureTime: exp,
			TargetID:     target.TargetID,
		})
		s.obsExpID++
		info.Observation = append(info.Observation, models.ObsExposure{
			ExposureID:        s.obsExpID,
			ExposureNum:       i + 1,
			ExposureStartTime: visit.ExposureStarts[i],
			ExposureTime:      exp,
			ObservationID:     obsID,
		})
	}
	return info
}
