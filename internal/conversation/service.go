// Package conversation is the webhook bounded context fronting the chat
// platform. Each step handler is stateless: it resolves the operator from
// the contact id on every call, and all cross-step state lives in the
// preference tables and the reading store.
package conversation

import (
	"context"

	"telemetry_backend/internal/content"
	"telemetry_backend/internal/readings"
	"telemetry_backend/internal/tenancy"
	"telemetry_backend/platform/logger"
)

// genericFailure is the degradation message when a step fails for a reason
// the operator cannot act on. The chat platform has no 500 recovery flow,
// so failures always come back as messages.
const genericFailure = "Something went wrong. Please try again."

// TenantDirectory resolves operators and their scheme memberships.
type TenantDirectory interface {
	ResolveByContact(ctx context.Context, contactID string) (tenancy.Match, error)
	DefaultScheme(ctx context.Context, schema string, operatorID int64) (int64, error)
	VerifyMembership(ctx context.Context, schema string, operatorID, schemeID int64) error
	UpdateOperatorLanguage(ctx context.Context, schema string, operatorID int64, languageID int) error
	UpdateSchemeChannel(ctx context.Context, schema string, schemeID int64, channel int) error
}

// PreferenceStore records per-contact conversation preferences.
type PreferenceStore interface {
	UpsertLanguage(ctx context.Context, tenantID int, contactID, languageValue string) error
	UpsertChannel(ctx context.Context, tenantID int, contactID, channelValue string) error
	FindLanguage(ctx context.Context, tenantID int, contactID string) (string, bool, error)
}

// ContentResolver resolves localized prompts, options, and templates.
type ContentResolver interface {
	Text(ctx context.Context, tenantID int, prefix, langKey string) (string, error)
	Options(ctx context.Context, tenantID int, prefix, langKey string) ([]string, error)
	LanguageOptions(ctx context.Context, tenantID int) ([]string, error)
	LanguageKeyFor(ctx context.Context, tenantID, languageID int) string
}

// ReadingCapture is the reading engine port.
type ReadingCapture interface {
	CaptureImage(ctx context.Context, schema string, p readings.CaptureImageParams) (readings.Result, error)
	CaptureManual(ctx context.Context, schema string, p readings.CaptureManualParams) (readings.Result, error)
}

// MediaFetcher downloads submitted meter images from the chat platform.
type MediaFetcher interface {
	FetchByID(ctx context.Context, mediaID string) ([]byte, error)
	FetchURL(ctx context.Context, imageURL string) ([]byte, error)
}

// ImageStore persists downloaded images and returns a fetchable URL.
type ImageStore interface {
	Upload(ctx context.Context, objectKey string, data []byte) (string, error)
}

// Service implements the conversation step handlers.
type Service struct {
	directory TenantDirectory
	prefs     PreferenceStore
	content   ContentResolver
	readings  ReadingCapture
	media     MediaFetcher
	images    ImageStore
	log       *logger.Logger
}

// NewService creates the conversation service.
func NewService(directory TenantDirectory, prefs PreferenceStore, contentResolver ContentResolver,
	capture ReadingCapture, media MediaFetcher, images ImageStore, log *logger.Logger) *Service {
	return &Service{
		directory: directory,
		prefs:     prefs,
		content:   contentResolver,
		readings:  capture,
		media:     media,
		images:    images,
		log:       log,
	}
}

// Intro greets the operator by title in their preferred language.
func (s *Service) Intro(ctx context.Context, req ContactRequest) StepResponse {
	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("intro", req.ContactID, err, genericFailure)
	}

	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	template, err := s.content.Text(ctx, tenantID, "intro_message", langKey)
	if err != nil {
		return s.fail("intro", req.ContactID, err, genericFailure)
	}

	return StepResponse{
		Success: true,
		Message: content.Render(template, map[string]string{"name": match.Operator.DisplayName()}),
	}
}

// Closing sends the localized thank-you that ends a session.
func (s *Service) Closing(ctx context.Context, req ContactRequest) StepResponse {
	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("closing", req.ContactID, err, genericFailure)
	}

	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	message, err := s.content.Text(ctx, tenantID, "closing_message", langKey)
	if err != nil {
		return s.fail("closing", req.ContactID, err, genericFailure)
	}

	return StepResponse{Success: true, Message: message}
}

// LanguageSelection returns the language prompt with the tenant's language
// options as a numbered menu.
func (s *Service) LanguageSelection(ctx context.Context, req ContactRequest) StepResponse {
	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("language-selection", req.ContactID, err, "Language selection could not be prepared.")
	}

	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	prompt, err := s.content.Text(ctx, tenantID, "language_selection_prompt", langKey)
	if err != nil {
		return s.fail("language-selection", req.ContactID, err, "Language selection could not be prepared.")
	}
	options, err := s.content.LanguageOptions(ctx, tenantID)
	if err != nil {
		return s.fail("language-selection", req.ContactID, err, "Language selection could not be prepared.")
	}

	return StepResponse{
		Success: true,
		Message: numberedMenu(prompt, options),
		Options: options,
	}
}

// SelectedLanguage commits the operator's language choice to both the
// operator row and the contact preference table, then echoes confirmation.
func (s *Service) SelectedLanguage(ctx context.Context, req SelectedLanguageRequest) StepResponse {
	const fallback = "Language selection could not be saved."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("selected-language", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID

	options, err := s.content.LanguageOptions(ctx, tenantID)
	if err != nil {
		return s.fail("selected-language", req.ContactID, err, fallback)
	}
	selected, ok := resolveSelection(req.Language, options)
	if !ok {
		return StepResponse{Success: false, Message: fallback}
	}

	languageID := indexOf(options, selected) + 1
	if err := s.directory.UpdateOperatorLanguage(ctx, match.Schema, match.Operator.ID, languageID); err != nil {
		return s.fail("selected-language", req.ContactID, err, fallback)
	}
	if err := s.prefs.UpsertLanguage(ctx, tenantID, req.ContactID, selected); err != nil {
		return s.fail("selected-language", req.ContactID, err, fallback)
	}

	template, err := s.content.Text(ctx, tenantID, "language_selection_confirmation_template", content.NormalizeLanguageKey(selected))
	if err != nil {
		return s.fail("selected-language", req.ContactID, err, fallback)
	}

	return StepResponse{
		Success: true,
		Message: content.Render(template, map[string]string{"language": selected}),
	}
}

// languageKey picks the prompt language for a resolved operator. An explicit
// operator language wins; otherwise the preference saved in the shared schema
// during an earlier conversation applies, and failing both it is English.
func (s *Service) languageKey(ctx context.Context, match tenancy.Match) string {
	if match.Operator.LanguageID > 0 {
		return s.content.LanguageKeyFor(ctx, match.Operator.TenantID, match.Operator.LanguageID)
	}
	if value, found, err := s.prefs.FindLanguage(ctx, match.Operator.TenantID, match.Operator.Phone); err == nil && found {
		return content.NormalizeLanguageKey(value)
	}
	return content.DefaultLanguageKey
}

func (s *Service) fail(step, contactID string, err error, message string) StepResponse {
	s.log.WebhookFailure(step, contactID, err)
	return StepResponse{Success: false, Message: message}
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}
