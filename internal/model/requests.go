package model

// SyncRequest carries the broadcast lists a phone extracted.
type SyncRequest struct {
	DeviceID  string          `json:"device_id" validate:"required"`
	Lists     []BroadcastList `json:"lists" validate:"dive"`
	Timestamp Timestamp       `json:"timestamp"`
}

// AnalysisRequest asks the AI service to characterize a set of common members.
type AnalysisRequest struct {
	Lists         []BroadcastList `json:"lists" validate:"dive"`
	CommonMembers []Contact       `json:"common_members" validate:"min=1"`
}

// NameSuggestionRequest asks the AI service for list names.
type NameSuggestionRequest struct {
	Members       []Contact `json:"members" validate:"min=1"`
	ExistingNames []string  `json:"existing_names"`
}
