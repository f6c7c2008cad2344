package simulator

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/sal"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
)

// SchedulerConfig is the survey extent announced to the scheduler
type SchedulerConfig struct {
	StartDate      string  `json:"startDate"`
	SurveyDuration float64 `json:"surveyDuration"`
	Nights         int     `json:"nights"`
}

// SurveyTopology lists the proposals the scheduler must run
type SurveyTopology struct {
	NumGeneralProps int      `json:"numGeneralProps"`
	GeneralPropos   []string `json:"generalPropos"`
	NumSeqProps     int      `json:"numSeqProps"`
	SequencePropos  []string `json:"sequencePropos"`
}

// ConfigPublication is one configuration topic and its payload
type ConfigPublication struct {
	Topic   string
	Payload any
}

// ConfigPublications is the configuration surface in publication order:
// one message per section and one per proposal.
func ConfigPublications(cfg *config.Config, nights int) []ConfigPublication {
	pubs := []ConfigPublication{
		{sal.TopicSchedulerConfig, SchedulerConfig{
			StartDate:      cfg.Survey.StartDate,
			SurveyDuration: cfg.Survey.DurationYears,
			Nights:         nights,
		}},
		{sal.TopicDriverConfig, cfg.Survey},
		{sal.TopicObsSiteConfig, cfg.Site},
		{sal.TopicTelescopeConfig, cfg.Telescope},
		{sal.TopicDomeConfig, cfg.Dome},
		{sal.TopicRotatorConfig, cfg.Rotator},
		{sal.TopicCameraConfig, cfg.Camera},
		{sal.TopicSlewConfig, cfg.Slew},
		{sal.TopicOpticsLoopCorrConfig, cfg.OpticsLoopCorr},
		{sal.TopicParkConfig, cfg.Park},
		{sal.TopicSurveyTopology, topology(&cfg.Proposals)},
	}
	for _, p := range cfg.Proposals.General {
		pubs = append(pubs, ConfigPublication{sal.TopicGeneralPropConfig, p})
	}
	for _, p := range cfg.Proposals.Sequence {
		pubs = append(pubs, ConfigPublication{sal.TopicSequencePropConfig, p})
	}
	return pubs
}

func topology(p *config.Proposals) SurveyTopology {
	t := SurveyTopology{
		NumGeneralProps: len(p.General),
		GeneralPropos:   make([]string, 0, len(p.General)),
		NumSeqProps:     len(p.Sequence),
		SequencePropos:  make([]string, 0, len(p.Sequence)),
	}
	for _, prop := range p.General {
		t.GeneralPropos = append(t.GeneralPropos, prop.Name)
	}
	for _, prop := range p.Sequence {
		t.SequencePropos = append(t.SequencePropos, prop.Name)
	}
	return t
}

func (s *Simulator) publishConfig(ctx context.Context) error {
	pubs := ConfigPublications(s.cfg, s.duration)
	for _, pub := range pubs {
		if err := s.proxy.PublishEvent(ctx, pub.Topic, pub.Payload); err != nil {
			return fmt.Errorf("failed to publish %s: %w", pub.Topic, err)
		}
	}
	s.log.Debug("configuration published", "topics", len(pubs))
	return nil
}
