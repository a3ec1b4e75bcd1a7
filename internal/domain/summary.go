package domain

// StageSummary counts one detector stage of an evaluation pass: how many
// candidate units the stage produced and how many ended up recorded as notified.
type StageSummary struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
}

// PassSummary is the result of one evaluation pass.
type PassSummary struct {
	Offline       StageSummary `json:"offline"`
	BatteryLow    StageSummary `json:"battery_low"`
	Online        StageSummary `json:"online"`
	MarkedOffline int          `json:"marked_offline"`
}
