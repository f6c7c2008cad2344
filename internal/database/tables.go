package database

import (
	"reflect"
	"strings"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// Logical table names accepted by AppendData
const (
	TableSession               = "Session"
	TableConfig                = "Config"
	TableField                 = "Field"
	TableProposal              = "Proposal"
	TableProposalField         = "ProposalField"
	TableScheduledDowntime     = "ScheduledDowntime"
	TableUnscheduledDowntime   = "UnscheduledDowntime"
	TableTargetHistory         = "TargetHistory"
	TableObsHistory            = "ObsHistory"
	TableSlewHistory           = "SlewHistory"
	TableSlewInitialState      = "SlewInitialState"
	TableSlewFinalState        = "SlewFinalState"
	TableSlewActivities        = "SlewActivities"
	TableSlewMaxSpeeds         = "SlewMaxSpeeds"
	TableTargetExposures       = "TargetExposures"
	TableObsExposures          = "ObsExposures"
	TableObsProposalHistory    = "ObsProposalHistory"
	TableTargetProposalHistory = "TargetProposalHistory"
)

// tableDef maps one record type onto its columns. fields returns pointers
// to the record's fields in column order, for both insert and scan.
type tableDef struct {
	name    string
	columns []string
	args    func(row any) ([]any, bool)
}

func def[T any](name string, columns []string, fields func(*T) []any) tableDef {
	return tableDef{
		name:    name,
		columns: columns,
		args: func(row any) ([]any, bool) {
			switch r := row.(type) {
			case T:
				return deref(fields(&r)), true
			case *T:
				return deref(fields(r)), true
			}
			return nil, false
		},
	}
}

func deref(ptrs []any) []any {
	out := make([]any, len(ptrs))
	for i, p := range ptrs {
		out[i] = reflect.ValueOf(p).Elem().Interface()
	}
	return out
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

func (t tableDef) insertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return "INSERT INTO " + t.name + " (" + joinColumns(t.columns) + ") VALUES (" + marks + ")"
}

func (t tableDef) selectSQL(orderBy string) string {
	return "SELECT " + joinColumns(t.columns) + " FROM " + t.name + " ORDER BY " + orderBy
}

var geometryColumns = []string{
	"moonRA", "moonDec", "moonAlt", "moonAz", "moonPhase", "moonDistance",
	"sunAlt", "sunAz", "sunRA", "sunDec", "solarElong",
}

func geometryFields(g *models.SkyGeometry) []any {
	return []any{
		&g.MoonRA, &g.MoonDec, &g.MoonAlt, &g.MoonAz, &g.MoonPhase, &g.MoonDistance,
		&g.SunAlt, &g.SunAz, &g.SunRA, &g.SunDec, &g.SolarElong,
	}
}

var sessionColumns = []string{"sessionId", "sessionUser", "sessionHost", "sessionDate", "version", "runComment"}

var configColumns = []string{"configId", "paramName", "paramValue"}

func configFields(r *models.ConfigParam) []any {
	return []any{&r.ConfigID, &r.ParamName, &r.ParamValue}
}

var fieldColumns = []string{"fieldId", "fov", "ra", "dec", "gl", "gb", "el", "eb"}

func fieldFields(r *models.Field) []any {
	return []any{&r.FieldID, &r.FOV, &r.RA, &r.Dec, &r.GL, &r.GB, &r.EL, &r.EB}
}

var proposalColumns = []string{"propId", "propName", "propType"}

func proposalFields(r *models.Proposal) []any {
	return []any{&r.PropID, &r.PropName, &r.PropType}
}

var proposalFieldColumns = []string{"proposalFieldId", "Field_fieldId", "Proposal_propId"}

func proposalFieldFields(r *models.ProposalField) []any {
	return []any{&r.ProposalFieldID, &r.FieldID, &r.ProposalID}
}

var downtimeColumns = []string{"night", "duration", "activity"}

func downtimeFields(r *models.DowntimeEntry) []any {
	return []any{&r.Night, &r.Duration, &r.Activity}
}

var targetColumns = append([]string{
	"targetId", "Field_fieldId", "filter", "requestTime", "ra", "dec", "angle",
	"numExposures", "requestedExpTime", "airmass", "skyBrightness", "cloud", "seeing",
	"slewTime", "costBonus", "rankBonus", "numProposals", "night",
}, geometryColumns...)

func targetFields(r *models.TargetHistory) []any {
	return append([]any{
		&r.TargetID, &r.FieldID, &r.Filter, &r.RequestTime, &r.RA, &r.Dec, &r.Angle,
		&r.NumExposures, &r.RequestedExpTime, &r.AirMass, &r.SkyBrightness, &r.Cloud, &r.Seeing,
		&r.SlewTime, &r.CostBonus, &r.RankBonus, &r.NumProposals, &r.Night,
	}, geometryFields(&r.SkyGeometry)...)
}

var observationColumns = append(append([]string{
	"observationId", "night", "observationStartTime", "TargetHistory_targetId", "Field_fieldId",
	"filter", "ra", "dec", "angle", "altitude", "azimuth", "numExposures", "visitTime",
	"visitExposureTime", "airmass", "skyBrightness", "cloud", "seeingFwhm500", "seeingFwhmGeom",
	"seeingFwhmEff", "fiveSigmaDepth",
}, geometryColumns...), "slewTime", "note")

func observationFields(r *models.Observation) []any {
	fields := append([]any{
		&r.ObservationID, &r.Night, &r.StartTime, &r.TargetID, &r.FieldID,
		&r.Filter, &r.RA, &r.Dec, &r.Angle, &r.Altitude, &r.Azimuth, &r.NumExposures, &r.VisitTime,
		&r.VisitExpTime, &r.AirMass, &r.SkyBrightness, &r.Cloud, &r.SeeingFwhm500, &r.SeeingFwhmGeom,
		&r.SeeingFwhmEff, &r.FiveSigmaDepth,
	}, geometryFields(&r.SkyGeometry)...)
	return append(fields, &r.SlewTime, &r.Note)
}

var slewHistoryColumns = []string{"slewCount", "startDate", "endDate", "slewTime", "slewDistance", "ObsHistory_observationId"}

func slewHistoryFields(r *models.SlewHistory) []any {
	return []any{&r.SlewCount, &r.StartDate, &r.EndDate, &r.SlewTime, &r.SlewDistance, &r.ObservationID}
}

var slewStateColumns = []string{
	"slewStateId", "slewStateDate", "targetRA", "targetDec", "tracking", "altitude", "azimuth",
	"paraAngle", "domAlt", "domAz", "telAlt", "telAz", "rotTelPos", "rotSkyPos", "filter",
	"SlewHistory_slewCount",
}

func slewStateFields(r *models.SlewState) []any {
	return []any{
		&r.SlewStateID, &r.SlewStateDate, &r.TargetRA, &r.TargetDec, &r.Tracking, &r.Altitude, &r.Azimuth,
		&r.ParAngle, &r.DomeAlt, &r.DomeAz, &r.TelAlt, &r.TelAz, &r.RotTelPos, &r.RotSkyPos, &r.Filter,
		&r.SlewCount,
	}
}

var slewActivityColumns = []string{"slewActivityId", "activity", "actDelay", "inCriticalPath", "SlewHistory_slewCount"}

func slewActivityFields(r *models.SlewActivity) []any {
	return []any{&r.SlewActivityID, &r.Activity, &r.ActDelay, &r.InCriticalPath, &r.SlewCount}
}

var slewMaxSpeedColumns = []string{"slewMaxSpeedId", "domAltSpd", "domAzSpd", "telAltSpd", "telAzSpd", "rotSpd", "SlewHistory_slewCount"}

func slewMaxSpeedFields(r *models.SlewMaxSpeeds) []any {
	return []any{&r.SlewMaxSpeedID, &r.DomeAltSpeed, &r.DomeAzSpeed, &r.TelAltSpeed, &r.TelAzSpeed, &r.RotatorSpeed, &r.SlewCount}
}

var targetExposureColumns = []string{"exposureId", "exposureNum", "exposureTime", "TargetHistory_targetId"}

func targetExposureFields(r *models.TargetExposure) []any {
	return []any{&r.ExposureID, &r.ExposureNum, &r.ExposureTime, &r.TargetID}
}

var obsExposureColumns = []string{"exposureId", "exposureNum", "exposureStartTime", "exposureTime", "ObsHistory_observationId"}

func obsExposureFields(r *models.ObsExposure) []any {
	return []any{&r.ExposureID, &r.ExposureNum, &r.ExposureStartTime, &r.ExposureTime, &r.ObservationID}
}

func proposalHistoryColumns(parent string) []string {
	return []string{"propHistId", "Proposal_propId", "proposalValue", "proposalNeed", "proposalBonus", "proposalBoost", parent}
}

func proposalHistoryFields(r *models.ProposalHistory) []any {
	return []any{&r.PropHistID, &r.ProposalID, &r.ProposalValue, &r.ProposalNeed, &r.ProposalBonus, &r.ProposalBoost, &r.ParentID}
}

var summaryColumns = []string{
	"observationId", "night", "observationStartTime", "fieldId", "fieldRA", "fieldDec", "filter",
	"proposalId", "visitTime", "visitExposureTime", "airmass", "skyBrightness", "seeingFwhmEff",
	"fiveSigmaDepth", "slewTime", "slewDistance", "paraAngle", "rotTelPos", "rotSkyPos",
}

func summaryFields(r *models.SummaryAllProps) []any {
	return []any{
		&r.ObservationID, &r.Night, &r.StartTime, &r.FieldID, &r.FieldRA, &r.FieldDec, &r.Filter,
		&r.ProposalID, &r.VisitTime, &r.VisitExpTime, &r.AirMass, &r.SkyBrightness, &r.SeeingFwhmEff,
		&r.FiveSigmaDepth, &r.SlewTime, &r.SlewDistance, &r.ParAngle, &r.RotTelPos, &r.RotSkyPos,
	}
}

// writeOrder is the order Write flushes tables in
var writeOrder = []tableDef{
	def(TableConfig, configColumns, configFields),
	def(TableField, fieldColumns, fieldFields),
	def(TableProposal, proposalColumns, proposalFields),
	def(TableProposalField, proposalFieldColumns, proposalFieldFields),
	def(TableScheduledDowntime, downtimeColumns, downtimeFields),
	def(TableUnscheduledDowntime, downtimeColumns, downtimeFields),
	def(TableTargetHistory, targetColumns, targetFields),
	def(TableObsHistory, observationColumns, observationFields),
	def(TableSlewHistory, slewHistoryColumns, slewHistoryFields),
	def(TableSlewInitialState, slewStateColumns, slewStateFields),
	def(TableSlewFinalState, slewStateColumns, slewStateFields),
	def(TableSlewActivities, slewActivityColumns, slewActivityFields),
	def(TableSlewMaxSpeeds, slewMaxSpeedColumns, slewMaxSpeedFields),
	def(TableTargetExposures, targetExposureColumns, targetExposureFields),
	def(TableObsExposures, obsExposureColumns, obsExposureFields),
	def(TableObsProposalHistory, proposalHistoryColumns("ObsHistory_observationId"), proposalHistoryFields),
	def(TableTargetProposalHistory, proposalHistoryColumns("TargetHistory_targetId"), proposalHistoryFields),
}

func lookupTable(name string) (tableDef, bool) {
	for _, t := range writeOrder {
		if t.name == name {
			return t, true
		}
	}
	return tableDef{}, false
}
