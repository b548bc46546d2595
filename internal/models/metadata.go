package models

// Metadata is the LLM-extracted description of an ingested source. The
// known fields cover what the extraction prompts ask for; anything else
// the model returns is preserved in Extra so unknown payload fields
// survive round-trips.
type Metadata struct {
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary,omitempty"`
	Topics   []string `json:"topics,omitempty"`

	// Audio-only fields.
	Speakers     []string `json:"speakers,omitempty"`
	Language     string   `json:"language,omitempty"`
	ActionItems  []string `json:"actionItems,omitempty"`
	Decisions    []string `json:"decisions,omitempty"`
	MeetingTitle string   `json:"meetingTitle,omitempty"`
	Participants []string `json:"participants,omitempty"`

	Extra map[string]any `json:"-"`
}
