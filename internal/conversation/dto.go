package conversation

// ContactRequest is the minimal webhook payload carried by prompt steps.
type ContactRequest struct {
	ContactID string `json:"contactId" validate:"required"`
}

// SelectedLanguageRequest commits a language choice.
type SelectedLanguageRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	Language  string `json:"language" validate:"required"`
}

// SelectedChannelRequest commits a channel choice. The chat platform reuses
// the same field name for item selections, so SelectedItemRequest matches.
type SelectedChannelRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	Channel   string `json:"channel" validate:"required"`
}

// SelectedItemRequest commits a menu item choice.
type SelectedItemRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	Channel   string `json:"channel" validate:"required"`
}

// TakeReadingRequest asks for the meter-reading instruction after a
// meter-change reason was chosen.
type TakeReadingRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// ManualReadingRequest submits an operator-typed reading.
type ManualReadingRequest struct {
	ContactID         string `json:"contactId" validate:"required"`
	ManualReading     string `json:"manualReading" validate:"required"`
	MeterChangeReason string `json:"meterChangeReason"`
	CorrelationID     string `json:"correlationId"`
}

// MediaRequest submits a meter image by platform media id or direct URL.
type MediaRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	MediaID   string `json:"mediaId"`
	MediaURL  string `json:"mediaUrl"`
}

// StepResponse is the reply shape for prompt and commit steps. The numbered
// option list is folded into the message for display and also returned
// structurally for bot branching.
type StepResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	Options       []string `json:"options,omitempty"`
	Selected      string   `json:"selected,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

// ReadingResponse is the reply shape for reading submissions.
type ReadingResponse struct {
	Success              bool     `json:"success"`
	Message              string   `json:"message"`
	CorrelationID        string   `json:"correlationId"`
	MeterReading         *float64 `json:"meterReading,omitempty"`
	QualityConfidence    *float64 `json:"qualityConfidence,omitempty"`
	QualityStatus        string   `json:"qualityStatus"`
	LastConfirmedReading *float64 `json:"lastConfirmedReading,omitempty"`
}
