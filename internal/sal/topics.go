package sal

// Topics subscribed from the scheduler
const (
	TopicSummaryState       = "summaryState"
	TopicValidSettings      = "validSettings"
	TopicTarget             = "target"
	TopicFilterSwap         = "needFilterSwap"
	TopicInterestedProposal = "interestedProposal"
)

// Topics published by the driver
const (
	TopicTimeHandler      = "timeHandler"
	TopicObservatoryState = "observatoryState"
	TopicBulkCloud        = "bulkCloud"
	TopicSeeing           = "seeing"
	TopicObservation      = "observation"

	TopicSchedulerConfig      = "schedulerConfig"
	TopicDriverConfig         = "driverConfig"
	TopicObsSiteConfig        = "obsSiteConfig"
	TopicTelescopeConfig      = "telescopeConfig"
	TopicDomeConfig           = "domeConfig"
	TopicRotatorConfig        = "rotatorConfig"
	TopicCameraConfig         = "cameraConfig"
	TopicSlewConfig           = "slewConfig"
	TopicOpticsLoopCorrConfig = "opticsLoopCorrConfig"
	TopicParkConfig           = "parkConfig"
	TopicSurveyTopology       = "surveyTopology"
	TopicGeneralPropConfig    = "generalPropConfig"
	TopicSequencePropConfig   = "sequencePropConfig"
)

// Commands sent to the scheduler
const (
	CmdEnterControl = "enterControl"
	CmdStart        = "start"
	CmdEnable       = "enable"
)

// TopicAck carries command acknowledgements back to the sender
const TopicAck = "ackcmd"

// CommandTopic is the topic a command is published on
func CommandTopic(name string) string {
	return "command_" + name
}

// Ack codes
const (
	AckComplete = 303
	AckFailed   = -302
)

// Command is the payload of a command topic
type Command struct {
	CmdID           int    `json:"cmdId"`
	Name            string `json:"name"`
	SettingsToApply string `json:"settingsToApply,omitempty"`
}

// Ack acknowledges a command
type Ack struct {
	CmdID  int    `json:"cmdId"`
	Ack    int    `json:"ack"`
	Result string `json:"result"`
}
