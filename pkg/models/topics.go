package models

// NoTarget is the target id the scheduler sends when nothing is observable
const NoTarget = -1

// SummaryState values published by the scheduler component
const (
	StateDisable = 0
	StateEnable  = 1
	StateFault   = 2
	StateOffline = 3
	StateStandby = 4
)

// SummaryStateName renders a summaryState value
func SummaryStateName(state int) string {
	switch state {
	case StateDisable:
		return "DISABLE"
	case StateEnable:
		return "ENABLE"
	case StateFault:
		return "FAULT"
	case StateOffline:
		return "OFFLINE"
	case StateStandby:
		return "STANDBY"
	default:
		return "UNKNOWN"
	}
}

// SummaryState is the scheduler's lifecycle event
type SummaryState struct {
	SummaryState int `json:"summaryState"`
}

// ValidSettings lists the scheduler's package versions
type ValidSettings struct {
	PackageVersions string `json:"packageVersions"`
}

// TimeHandlerTopic carries the simulated clock to the scheduler
type TimeHandlerTopic struct {
	Timestamp    float64 `json:"timestamp"`
	Night        int     `json:"night"`
	IsDown       bool    `json:"isDown"`
	DownDuration float64 `json:"downDuration"`
}

// ObservatoryState is the pointing, dome, telescope and filter state
type ObservatoryState struct {
	Timestamp        float64  `json:"timestamp"`
	PointingRA       float64  `json:"pointingRa"`
	PointingDec      float64  `json:"pointingDec"`
	PointingAngle    float64  `json:"pointingAngle"`
	PointingAltitude float64  `json:"pointingAltitude"`
	PointingAzimuth  float64  `json:"pointingAzimuth"`
	PointingPA       float64  `json:"pointingPa"`
	Tracking         bool     `json:"tracking"`
	DomeAltitude     float64  `json:"domeAltitude"`
	DomeAzimuth      float64  `json:"domeAzimuth"`
	TelescopeAlt     float64  `json:"telescopeAltitude"`
	TelescopeAz      float64  `json:"telescopeAzimuth"`
	TelescopeRot     float64  `json:"telescopeRotator"`
	FilterPosition   string   `json:"filterPosition"`
	FilterMounted    []string `json:"filterMounted"`
	FilterUnmounted  []string `json:"filterUnmounted"`
}

// BulkCloud is the cloud coverage publication
type BulkCloud struct {
	Timestamp float64 `json:"timestamp"`
	BulkCloud float64 `json:"bulkCloud"`
}

// Seeing is the FWHM500 publication
type Seeing struct {
	Timestamp float64 `json:"timestamp"`
	Seeing    float64 `json:"seeing"`
}

// SkyGeometry carries the lunar and solar geometry shared by targets and
// observations
type SkyGeometry struct {
	MoonRA       float64 `json:"moonRa"`
	MoonDec      float64 `json:"moonDec"`
	MoonAlt      float64 `json:"moonAlt"`
	MoonAz       float64 `json:"moonAz"`
	MoonPhase    float64 `json:"moonPhase"`
	MoonDistance float64 `json:"moonDistance"`
	SunAlt       float64 `json:"sunAlt"`
	SunAz        float64 `json:"sunAz"`
	SunRA        float64 `json:"sunRa"`
	SunDec       float64 `json:"sunDec"`
	SolarElong   float64 `json:"solarElong"`
}

// Target is the scheduler's selection
type Target struct {
	TargetID        int       `json:"targetId"`
	RequestTime     float64   `json:"requestTime"`
	FieldID         int       `json:"fieldId"`
	Filter          string    `json:"filter"`
	RA              float64   `json:"ra"`
	Dec             float64   `json:"dec"`
	Angle           float64   `json:"angle"`
	NumExposures    int       `json:"numExposures"`
	ExposureTimes   []float64 `json:"exposureTimes"`
	AirMass         float64   `json:"airmass"`
	SkyBrightness   float64   `json:"skyBrightness"`
	Cloud           float64   `json:"cloud"`
	Seeing          float64   `json:"seeing"`
	SlewTime        float64   `json:"slewTime"`
	CostBonus       float64   `json:"costBonus"`
	RankBonus       float64   `json:"rankBonus"`
	NumProposals    int       `json:"numProposals"`
	ProposalIDs     []int     `json:"proposalId"`
	ProposalValues  []float64 `json:"proposalValue"`
	ProposalNeeds   []float64 `json:"proposalNeed"`
	ProposalBonuses []float64 `json:"proposalBonus"`
	ProposalBoosts  []float64 `json:"proposalBoost"`
	SkyGeometry
}

// IsEmpty reports whether the scheduler had nothing to observe
func (t *Target) IsEmpty() bool {
	return t.TargetID == NoTarget
}

// RequestedExposureTime is the sum of the requested exposure times
func (t *Target) RequestedExposureTime() float64 {
	sum := 0.0
	for _, e := range t.ExposureTimes {
		sum += e
	}
	return sum
}

// ProposalHistories attributes the target to each of its proposals
func (t *Target) ProposalHistories() []ProposalHistory {
	return proposalRows(t.TargetID, t.ProposalIDs, t.ProposalValues, t.ProposalNeeds, t.ProposalBonuses, t.ProposalBoosts)
}

// FilterSwap is the scheduler's start-of-day filter request
type FilterSwap struct {
	NeedSwap        bool   `json:"needSwap"`
	FilterToUnmount string `json:"filterToUnmount"`
	FilterToMount   string `json:"filterToMount"`
}

// InterestedProposal is the attribution reply for a published observation
type InterestedProposal struct {
	ObservationID   int       `json:"observationId"`
	NumProposals    int       `json:"numProposals"`
	ProposalIDs     []int     `json:"proposalId"`
	ProposalValues  []float64 `json:"proposalValue"`
	ProposalNeeds   []float64 `json:"proposalNeed"`
	ProposalBonuses []float64 `json:"proposalBonus"`
	ProposalBoosts  []float64 `json:"proposalBoost"`
}

// ProposalHistories attributes the observation to each interested proposal
func (ip *InterestedProposal) ProposalHistories() []ProposalHistory {
	return proposalRows(ip.ObservationID, ip.ProposalIDs, ip.ProposalValues, ip.ProposalNeeds, ip.ProposalBonuses, ip.ProposalBoosts)
}

func proposalRows(parent int, ids []int, values, needs, bonuses, boosts []float64) []ProposalHistory {
	rows := make([]ProposalHistory, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, ProposalHistory{
			ParentID:      parent,
			ProposalID:    id,
			ProposalValue: at(values, i),
			ProposalNeed:  at(needs, i),
			ProposalBonus: at(bonuses, i),
			ProposalBoost: at(boosts, i),
		})
	}
	return rows
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
