package models

// Observation is both the outbound topic and the ObsHistory row
type Observation struct {
	ObservationID  int       `json:"observationId"`
	StartTime      float64   `json:"observationStartTime"`
	Night          int       `json:"night"`
	TargetID       int       `json:"targetId"`
	FieldID        int       `json:"fieldId"`
	Filter         string    `json:"filter"`
	RA             float64   `json:"ra"`
	Dec            float64   `json:"dec"`
	Angle          float64   `json:"angle"`
	Altitude       float64   `json:"altitude"`
	Azimuth        float64   `json:"azimuth"`
	NumExposures   int       `json:"numExposures"`
	ExposureTimes  []float64 `json:"exposureTimes"`
	ExposureStarts []float64 `json:"exposureStarts"`
	VisitTime      float64   `json:"visitTime"`
	VisitExpTime   float64   `json:"visitExposureTime"`
	AirMass        float64   `json:"airmass"`
	SkyBrightness  float64   `json:"skyBrightness"`
	Cloud          float64   `json:"cloud"`
	SeeingFwhm500  float64   `json:"seeingFwhm500"`
	SeeingFwhmGeom float64   `json:"seeingFwhmGeom"`
	SeeingFwhmEff  float64   `json:"seeingFwhmEff"`
	FiveSigmaDepth float64   `json:"fiveSigmaDepth"`
	SlewTime       float64   `json:"slewTime"`
	Note           string    `json:"note"`
	NumProposals   int       `json:"numProposals"`
	ProposalIDs    []int     `json:"proposalId"`
	SkyGeometry
}

// EmptyObservation is what the sequencer returns when no target was sent
func EmptyObservation() Observation {
	return Observation{ObservationID: NoTarget, TargetID: NoTarget}
}

// TargetHistory is one row per target received from the scheduler
type TargetHistory struct {
	TargetID         int     `json:"targetId"`
	FieldID          int     `json:"fieldId"`
	Filter           string  `json:"filter"`
	RequestTime      float64 `json:"requestTime"`
	RA               float64 `json:"ra"`
	Dec              float64 `json:"dec"`
	Angle            float64 `json:"angle"`
	NumExposures     int     `json:"numExposures"`
	RequestedExpTime float64 `json:"requestedExpTime"`
	AirMass          float64 `json:"airmass"`
	SkyBrightness    float64 `json:"skyBrightness"`
	Cloud            float64 `json:"cloud"`
	Seeing           float64 `json:"seeing"`
	SlewTime         float64 `json:"slewTime"`
	CostBonus        float64 `json:"costBonus"`
	RankBonus        float64 `json:"rankBonus"`
	NumProposals     int     `json:"numProposals"`
	Night            int     `json:"night"`
	SkyGeometry
}

// NewTargetHistory flattens an inbound target into its history row
func NewTargetHistory(t *Target, night int) TargetHistory {
	return TargetHistory{
		TargetID:         t.TargetID,
		FieldID:          t.FieldID,
		Filter:           t.Filter,
		RequestTime:      t.RequestTime,
		RA:               t.RA,
		Dec:              t.Dec,
		Angle:            t.Angle,
		NumExposures:     t.NumExposures,
		RequestedExpTime: t.RequestedExposureTime(),
		AirMass:          t.AirMass,
		SkyBrightness:    t.SkyBrightness,
		Cloud:            t.Cloud,
		Seeing:           t.Seeing,
		SlewTime:         t.SlewTime,
		CostBonus:        t.CostBonus,
		RankBonus:        t.RankBonus,
		NumProposals:     len(t.ProposalIDs),
		Night:            night,
		SkyGeometry:      t.SkyGeometry,
	}
}

// SlewHistory records one slew
type SlewHistory struct {
	SlewCount     int     `json:"slewCount"`
	StartDate     float64 `json:"startDate"`
	EndDate       float64 `json:"endDate"`
	SlewTime      float64 `json:"slewTime"`
	SlewDistance  float64 `json:"slewDistance"`
	ObservationID int     `json:"ObsHistory_observationId"`
}

// SlewState captures the observatory geometry at one end of a slew
type SlewState struct {
	SlewStateID   int     `json:"slewStateId"`
	SlewStateDate float64 `json:"slewStateDate"`
	TargetRA      float64 `json:"targetRA"`
	TargetDec     float64 `json:"targetDec"`
	Tracking      bool    `json:"tracking"`
	Altitude      float64 `json:"altitude"`
	Azimuth       float64 `json:"azimuth"`
	ParAngle      float64 `json:"paraAngle"`
	DomeAlt       float64 `json:"domAlt"`
	DomeAz        float64 `json:"domAz"`
	TelAlt        float64 `json:"telAlt"`
	TelAz         float64 `json:"telAz"`
	RotTelPos     float64 `json:"rotTelPos"`
	RotSkyPos     float64 `json:"rotSkyPos"`
	Filter        string  `json:"filter"`
	SlewCount     int     `json:"SlewHistory_slewCount"`
}

// SlewActivity is one contributing delay of a slew
type SlewActivity struct {
	SlewActivityID int     `json:"slewActivityId"`
	Activity       string  `json:"activity"`
	ActDelay       float64 `json:"actDelay"`
	InCriticalPath bool    `json:"inCriticalPath"`
	SlewCount      int     `json:"SlewHistory_slewCount"`
}

// SlewMaxSpeeds holds the peak axis speeds reached during a slew
type SlewMaxSpeeds struct {
	SlewMaxSpeedID int     `json:"slewMaxSpeedId"`
	DomeAltSpeed   float64 `json:"domAltSpd"`
	DomeAzSpeed    float64 `json:"domAzSpd"`
	TelAltSpeed    float64 `json:"telAltSpd"`
	TelAzSpeed     float64 `json:"telAzSpd"`
	RotatorSpeed   float64 `json:"rotSpd"`
	SlewCount      int     `json:"SlewHistory_slewCount"`
}

// SlewInfo bundles every record produced by a single slew
type SlewInfo struct {
	History    SlewHistory
	Initial    SlewState
	Final      SlewState
	Activities []SlewActivity
	MaxSpeeds  SlewMaxSpeeds
}

// TargetExposure is one requested exposure of a target
type TargetExposure struct {
	ExposureID   int     `json:"exposureId"`
	ExposureNum  int     `json:"exposureNum"`
	ExposureTime float64 `json:"exposureTime"`
	TargetID     int     `json:"TargetHistory_targetId"`
}

// ObsExposure is one executed exposure of an observation
type ObsExposure struct {
	ExposureID        int     `json:"exposureId"`
	ExposureNum       int     `json:"exposureNum"`
	ExposureStartTime float64 `json:"exposureStartTime"`
	ExposureTime      float64 `json:"exposureTime"`
	ObservationID     int     `json:"ObsHistory_observationId"`
}

// ExposureInfo bundles the exposure rows of one visit
type ExposureInfo struct {
	Target      []TargetExposure
	Observation []ObsExposure
}

// ProposalHistory attributes one target or observation to one proposal.
// ParentID is the observation id or the target id depending on the table.
type ProposalHistory struct {
	PropHistID    int     `json:"propHistId"`
	ProposalID    int     `json:"Proposal_propId"`
	ProposalValue float64 `json:"proposalValue"`
	ProposalNeed  float64 `json:"proposalNeed"`
	ProposalBonus float64 `json:"proposalBonus"`
	ProposalBoost float64 `json:"proposalBoost"`
	ParentID      int     `json:"parentId"`
}

// Field is an opaque sky coordinate carrier
type Field struct {
	FieldID int     `json:"fieldId" yaml:"id"`
	FOV     float64 `json:"fov" yaml:"fov"`
	RA      float64 `json:"ra" yaml:"ra"`
	Dec     float64 `json:"dec" yaml:"dec"`
	GL      float64 `json:"gl" yaml:"gl"`
	GB      float64 `json:"gb" yaml:"gb"`
	EL      float64 `json:"el" yaml:"el"`
	EB      float64 `json:"eb" yaml:"eb"`
}

// Proposal identifies a scientific sub-program
type Proposal struct {
	PropID   int    `json:"propId"`
	PropName string `json:"propName"`
	PropType string `json:"propType"`
}

// ProposalField links a proposal to one of its fields
type ProposalField struct {
	ProposalFieldID int `json:"proposalFieldId"`
	FieldID         int `json:"Field_fieldId"`
	ProposalID      int `json:"Proposal_propId"`
}

// DowntimeEntry is a contiguous run of dark nights
type DowntimeEntry struct {
	Night    int    `json:"night"`
	Duration int    `json:"duration"`
	Activity string `json:"activity"`
}

// Nights lists the night indices covered by the entry
func (d DowntimeEntry) Nights() []int {
	nights := make([]int, 0, d.Duration)
	for n := d.Night; n < d.Night+d.Duration; n++ {
		nights = append(nights, n)
	}
	return nights
}

// End is the first night after the entry
func (d DowntimeEntry) End() int {
	return d.Night + d.Duration
}

// ConfigParam is one flattened configuration value
type ConfigParam struct {
	ConfigID   int    `json:"configId"`
	ParamName  string `json:"paramName"`
	ParamValue string `json:"paramValue"`
}

// SummaryAllProps is one (observation, proposal) row of the summary view
type SummaryAllProps struct {
	ObservationID  int     `json:"observationId"`
	Night          int     `json:"night"`
	StartTime      float64 `json:"observationStartTime"`
	FieldID        int     `json:"fieldId"`
	FieldRA        float64 `json:"fieldRA"`
	FieldDec       float64 `json:"fieldDec"`
	Filter         string  `json:"filter"`
	ProposalID     int     `json:"proposalId"`
	VisitTime      float64 `json:"visitTime"`
	VisitExpTime   float64 `json:"visitExposureTime"`
	AirMass        float64 `json:"airmass"`
	SkyBrightness  float64 `json:"skyBrightness"`
	SeeingFwhmEff  float64 `json:"seeingFwhmEff"`
	FiveSigmaDepth float64 `json:"fiveSigmaDepth"`
	SlewTime       float64 `json:"slewTime"`
	SlewDistance   float64 `json:"slewDistance"`
	ParAngle       float64 `json:"paraAngle"`
	RotTelPos      float64 `json:"rotTelPos"`
	RotSkyPos      float64 `json:"rotSkyPos"`
}
