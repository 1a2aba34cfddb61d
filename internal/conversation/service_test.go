package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"telemetry_backend/internal/content"
	"telemetry_backend/internal/readings"
	"telemetry_backend/internal/tenancy"
	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/logger"
)

// fakeDirectory resolves a single operator for every contact id unless
// primed to fail.
type fakeDirectory struct {
	match       tenancy.Match
	resolveErr  error
	schemeID    int64
	schemeErr   error
	memberErr   error
	languageSet []int
	channelSet  []int
}

func (f *fakeDirectory) ResolveByContact(_ context.Context, _ string) (tenancy.Match, error) {
	if f.resolveErr != nil {
		return tenancy.Match{}, f.resolveErr
	}
	return f.match, nil
}

func (f *fakeDirectory) DefaultScheme(_ context.Context, _ string, _ int64) (int64, error) {
	if f.schemeErr != nil {
		return 0, f.schemeErr
	}
	return f.schemeID, nil
}

func (f *fakeDirectory) VerifyMembership(_ context.Context, _ string, _, _ int64) error {
	return f.memberErr
}

func (f *fakeDirectory) UpdateOperatorLanguage(_ context.Context, _ string, _ int64, languageID int) error {
	f.languageSet = append(f.languageSet, languageID)
	return nil
}

func (f *fakeDirectory) UpdateSchemeChannel(_ context.Context, _ string, _ int64, channel int) error {
	f.channelSet = append(f.channelSet, channel)
	return nil
}

type fakePrefs struct {
	languages map[string]string
	channels  map[string]string
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{languages: map[string]string{}, channels: map[string]string{}}
}

func (f *fakePrefs) UpsertLanguage(_ context.Context, _ int, contactID, value string) error {
	f.languages[contactID] = value
	return nil
}

func (f *fakePrefs) UpsertChannel(_ context.Context, _ int, contactID, value string) error {
	f.channels[contactID] = value
	return nil
}

func (f *fakePrefs) FindLanguage(_ context.Context, _ int, contactID string) (string, bool, error) {
	value, ok := f.languages[contactID]
	return value, ok, nil
}

// fakeContentStore backs a real content.Resolver so the cascade behavior in
// these tests is the production one.
type fakeContentStore struct {
	values    map[string]string
	localized map[string][]string
	generic   map[string][]string
}

func (f *fakeContentStore) FindValue(_ context.Context, _ int, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeContentStore) ListLocalized(_ context.Context, _ int, prefix, langKey string) ([]string, error) {
	return f.localized[prefix+"/"+langKey], nil
}

func (f *fakeContentStore) ListGeneric(_ context.Context, _ int, prefix string) ([]string, error) {
	return f.generic[prefix], nil
}

type fakeCapture struct {
	imageResult  readings.Result
	manualResult readings.Result
	manualParams []readings.CaptureManualParams
	imageParams  []readings.CaptureImageParams
}

func (f *fakeCapture) CaptureImage(_ context.Context, _ string, p readings.CaptureImageParams) (readings.Result, error) {
	f.imageParams = append(f.imageParams, p)
	return f.imageResult, nil
}

func (f *fakeCapture) CaptureManual(_ context.Context, _ string, p readings.CaptureManualParams) (readings.Result, error) {
	f.manualParams = append(f.manualParams, p)
	if p.Value <= 0 {
		return readings.Result{Success: false, Message: "Invalid reading value", QualityStatus: readings.StatusRejected}, nil
	}
	return f.manualResult, nil
}

type fakeMedia struct {
	data []byte
	err  error
}

func (f *fakeMedia) FetchByID(_ context.Context, _ string) ([]byte, error)  { return f.data, f.err }
func (f *fakeMedia) FetchURL(_ context.Context, _ string) ([]byte, error)  { return f.data, f.err }

type fakeImages struct {
	uploads []string
}

func (f *fakeImages) Upload(_ context.Context, objectKey string, _ []byte) (string, error) {
	f.uploads = append(f.uploads, objectKey)
	return "http://minio/meter-images/" + objectKey, nil
}

type deps struct {
	directory *fakeDirectory
	prefs     *fakePrefs
	store     *fakeContentStore
	capture   *fakeCapture
	media     *fakeMedia
	images    *fakeImages
}

func newTestService(d deps) *Service {
	log := logger.New("development")
	if d.directory == nil {
		d.directory = &fakeDirectory{
			match: tenancy.Match{
				Schema:   "tenant_mh",
				Operator: tenancy.Operator{ID: 7, TenantID: 2, Title: "Asha", LanguageID: 0},
			},
			schemeID: 42,
		}
	}
	if d.prefs == nil {
		d.prefs = newFakePrefs()
	}
	if d.store == nil {
		d.store = &fakeContentStore{}
	}
	if d.capture == nil {
		d.capture = &fakeCapture{}
	}
	if d.media == nil {
		d.media = &fakeMedia{data: []byte("jpeg-bytes")}
	}
	if d.images == nil {
		d.images = &fakeImages{}
	}
	return NewService(d.directory, d.prefs, content.NewResolver(d.store, log), d.capture, d.media, d.images, log)
}

func TestIntroGreetsByTitle(t *testing.T) {
	store := &fakeContentStore{values: map[string]string{"intro_message": "Hello {name}, welcome."}}
	svc := newTestService(deps{store: store})

	resp := svc.Intro(context.Background(), ContactRequest{ContactID: "919876543210"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if resp.Message != "Hello Asha, welcome." {
		t.Fatalf("unexpected greeting: %q", resp.Message)
	}
}

func TestIntroUsesStoredLanguagePreference(t *testing.T) {
	directory := &fakeDirectory{
		match: tenancy.Match{
			Schema:   "tenant_mh",
			Operator: tenancy.Operator{ID: 7, TenantID: 2, Title: "Asha", Phone: "919876543210", LanguageID: 0},
		},
		schemeID: 42,
	}
	prefs := newFakePrefs()
	prefs.languages["919876543210"] = "हिंदी"
	store := &fakeContentStore{values: map[string]string{
		"intro_message":       "Hello {name}.",
		"intro_message_hindi": "नमस्ते {name}.",
	}}
	svc := newTestService(deps{directory: directory, prefs: prefs, store: store})

	resp := svc.Intro(context.Background(), ContactRequest{ContactID: "919876543210"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if resp.Message != "नमस्ते Asha." {
		t.Fatalf("stored preference not applied: %q", resp.Message)
	}
}

func TestIntroFallsBackWhenOperatorMissing(t *testing.T) {
	svc := newTestService(deps{directory: &fakeDirectory{resolveErr: apperr.NotFound("operator not found")}})

	resp := svc.Intro(context.Background(), ContactRequest{ContactID: "910000000000"})
	if resp.Success || resp.Message != genericFailure {
		t.Fatalf("expected generic degradation, got %+v", resp)
	}
}

func TestLanguageSelectionDefaultsWithNoConfig(t *testing.T) {
	// Operator with languageId 0 and zero config rows: the prompt comes
	// from the embedded default, and the missing options are a controlled
	// failure message rather than a crash.
	svc := newTestService(deps{store: &fakeContentStore{}})

	resp := svc.LanguageSelection(context.Background(), ContactRequest{ContactID: "919876543210"})
	if resp.Success {
		t.Fatal("no language options configured must not report success")
	}
	if resp.Message != "Language selection could not be prepared." {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestLanguageSelectionMenu(t *testing.T) {
	store := &fakeContentStore{
		generic: map[string][]string{"language": {"English", "हिंदी"}},
	}
	svc := newTestService(deps{store: store})

	resp := svc.LanguageSelection(context.Background(), ContactRequest{ContactID: "919876543210"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if len(resp.Options) != 2 {
		t.Fatalf("expected 2 options, got %v", resp.Options)
	}
	if !strings.Contains(resp.Message, "1. English") || !strings.Contains(resp.Message, "2. हिंदी") {
		t.Fatalf("expected numbered menu, got %q", resp.Message)
	}
}

func TestSelectedLanguageCommitsBothStores(t *testing.T) {
	directory := &fakeDirectory{
		match:    tenancy.Match{Schema: "tenant_mh", Operator: tenancy.Operator{ID: 7, TenantID: 2}},
		schemeID: 42,
	}
	prefs := newFakePrefs()
	store := &fakeContentStore{generic: map[string][]string{"language": {"English", "हिंदी"}}}
	svc := newTestService(deps{directory: directory, prefs: prefs, store: store})

	resp := svc.SelectedLanguage(context.Background(), SelectedLanguageRequest{ContactID: "919876543210", Language: "2"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if resp.Message != "Language selected: हिंदी" {
		t.Fatalf("unexpected confirmation: %q", resp.Message)
	}
	if len(directory.languageSet) != 1 || directory.languageSet[0] != 2 {
		t.Fatalf("expected operator language set to 2, got %v", directory.languageSet)
	}
	if prefs.languages["919876543210"] != "हिंदी" {
		t.Fatalf("expected preference row, got %v", prefs.languages)
	}
}

func TestSelectedChannelCommitsSchemeAndPreference(t *testing.T) {
	directory := &fakeDirectory{
		match:    tenancy.Match{Schema: "tenant_mh", Operator: tenancy.Operator{ID: 7, TenantID: 2}},
		schemeID: 42,
	}
	prefs := newFakePrefs()
	store := &fakeContentStore{generic: map[string][]string{"channel": {"Tap", "Tanker"}}}
	svc := newTestService(deps{directory: directory, prefs: prefs, store: store})

	resp := svc.SelectedChannel(context.Background(), SelectedChannelRequest{ContactID: "919876543210", Channel: "Tanker"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if resp.Message != "Channel selected: Tanker" {
		t.Fatalf("unexpected confirmation: %q", resp.Message)
	}
	if len(directory.channelSet) != 1 || directory.channelSet[0] != 2 {
		t.Fatalf("expected channel 2 on scheme, got %v", directory.channelSet)
	}
	if prefs.channels["919876543210"] != "Tanker" {
		t.Fatalf("expected channel preference, got %v", prefs.channels)
	}
}

func TestSelectedItemReturnsCode(t *testing.T) {
	store := &fakeContentStore{
		generic: map[string][]string{"item": {"Submit Reading", "Change Channel", "Meter Change", "Change Language"}},
	}
	svc := newTestService(deps{store: store})

	resp := svc.SelectedItem(context.Background(), SelectedItemRequest{ContactID: "919876543210", Channel: "3"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if resp.Selected != "meterChange" {
		t.Fatalf("expected meterChange code, got %q", resp.Selected)
	}
	if resp.Message != "Meter Change selected" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestTakeMeterReadingIsReadOnly(t *testing.T) {
	capture := &fakeCapture{}
	store := &fakeContentStore{
		generic: map[string][]string{"meter_change_reason": {"Damaged", "Stolen"}},
		values:  map[string]string{"take_meter_reading_prompt": "Type the reading now."},
	}
	svc := newTestService(deps{store: store, capture: capture})

	resp := svc.TakeMeterReading(context.Background(), TakeReadingRequest{ContactID: "919876543210", Reason: "1"})
	if !resp.Success || resp.Message != "Type the reading now." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(capture.manualParams) != 0 || len(capture.imageParams) != 0 {
		t.Fatal("prompt step must not touch the reading store")
	}
}

func TestManualReadingZeroRejected(t *testing.T) {
	capture := &fakeCapture{}
	svc := newTestService(deps{capture: capture})

	resp := svc.ManualReading(context.Background(), ManualReadingRequest{ContactID: "919876543210", ManualReading: "0"})
	if resp.Success {
		t.Fatal("zero reading must be rejected")
	}
	if resp.Message != "Invalid reading value" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestManualReadingNonNumericRejected(t *testing.T) {
	capture := &fakeCapture{}
	svc := newTestService(deps{capture: capture})

	resp := svc.ManualReading(context.Background(), ManualReadingRequest{ContactID: "919876543210", ManualReading: "twelve"})
	if resp.Success || resp.Message != "Manual reading could not be saved." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(capture.manualParams) != 0 {
		t.Fatal("non-numeric input must not reach the engine")
	}
}

func TestManualReadingSuccessUsesTemplate(t *testing.T) {
	capture := &fakeCapture{
		manualResult: readings.Result{
			Success:       true,
			Message:       "Reading captured successfully",
			CorrelationID: "corr-5",
			QualityStatus: readings.StatusConfirmed,
		},
	}
	svc := newTestService(deps{capture: capture})

	resp := svc.ManualReading(context.Background(), ManualReadingRequest{ContactID: "919876543210", ManualReading: "1,234.5"})
	if !resp.Success {
		t.Fatalf("expected success: %s", resp.Message)
	}
	if resp.Message != "Manual reading 1234.5 saved successfully." {
		t.Fatalf("unexpected confirmation: %q", resp.Message)
	}
	if capture.manualParams[0].Value != 1234.5 {
		t.Fatalf("expected comma-stripped value 1234.5, got %v", capture.manualParams[0].Value)
	}
	if resp.CorrelationID != "corr-5" {
		t.Fatalf("expected engine correlation id, got %q", resp.CorrelationID)
	}
}

func TestProcessImageNoMedia(t *testing.T) {
	svc := newTestService(deps{})

	resp := svc.ProcessImage(context.Background(), MediaRequest{ContactID: "919876543210"})
	if resp.Success {
		t.Fatal("missing media must be rejected")
	}
	if resp.Message != "Invalid media. Please send a clear meter image." {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.QualityStatus != readings.StatusRejected {
		t.Fatalf("expected REJECTED, got %q", resp.QualityStatus)
	}
}

func TestProcessImageUploadsAndCaptures(t *testing.T) {
	value := 120.5
	conf := 0.42
	capture := &fakeCapture{
		imageResult: readings.Result{
			Success:           false,
			Message:           "Low OCR confidence. Extracted reading: 120.5. Please confirm reading.",
			CorrelationID:     "corr-7",
			MeterReading:      &value,
			QualityConfidence: &conf,
			QualityStatus:     readings.StatusReview,
		},
	}
	images := &fakeImages{}
	svc := newTestService(deps{capture: capture, images: images})

	resp := svc.ProcessImage(context.Background(), MediaRequest{ContactID: "919876543210", MediaID: "media-1"})
	if len(images.uploads) != 1 || !strings.HasPrefix(images.uploads[0], "bfm/919876543210/") {
		t.Fatalf("expected archived image under the contact prefix, got %v", images.uploads)
	}
	if len(capture.imageParams) != 1 {
		t.Fatalf("expected one capture call, got %d", len(capture.imageParams))
	}
	if !strings.HasPrefix(capture.imageParams[0].ImageURL, "http://minio/meter-images/bfm/") {
		t.Fatalf("expected stored image URL passed to OCR, got %q", capture.imageParams[0].ImageURL)
	}
	if resp.Success || !strings.Contains(resp.Message, "Low OCR confidence") {
		t.Fatalf("expected low-confidence passthrough, got %+v", resp)
	}
	if resp.QualityConfidence == nil || *resp.QualityConfidence != 0.42 {
		t.Fatalf("expected confidence relayed, got %v", resp.QualityConfidence)
	}
}

func TestProcessImageDownloadFailureDegrades(t *testing.T) {
	svc := newTestService(deps{media: &fakeMedia{err: errors.New("connection refused")}})

	resp := svc.ProcessImage(context.Background(), MediaRequest{ContactID: "919876543210", MediaURL: "http://img"})
	if resp.Success || resp.Message != genericFailure {
		t.Fatalf("expected generic degradation, got %+v", resp)
	}
}

func TestProcessImageMembershipEnforced(t *testing.T) {
	directory := &fakeDirectory{
		match:     tenancy.Match{Schema: "tenant_mh", Operator: tenancy.Operator{ID: 7, TenantID: 2}},
		schemeID:  42,
		memberErr: apperr.Forbidden("operator is not assigned to this scheme"),
	}
	capture := &fakeCapture{}
	svc := newTestService(deps{directory: directory, capture: capture})

	resp := svc.ProcessImage(context.Background(), MediaRequest{ContactID: "919876543210", MediaID: "media-1"})
	if resp.Success {
		t.Fatal("membership failure must reject the submission")
	}
	if len(capture.imageParams) != 0 {
		t.Fatal("capture must not run without membership")
	}
}
