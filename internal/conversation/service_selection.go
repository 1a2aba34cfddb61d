package conversation

import (
	"context"

	"telemetry_backend/internal/content"
)

// ChannelSelection returns the channel prompt with the tenant's channel
// options, localized to the operator's language.
func (s *Service) ChannelSelection(ctx context.Context, req ContactRequest) StepResponse {
	const fallback = "Channel selection could not be prepared."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("channel-selection", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	prompt, err := s.content.Text(ctx, tenantID, "channel_selection_prompt", langKey)
	if err != nil {
		return s.fail("channel-selection", req.ContactID, err, fallback)
	}
	options, err := s.content.Options(ctx, tenantID, "channel", langKey)
	if err != nil {
		return s.fail("channel-selection", req.ContactID, err, fallback)
	}

	return StepResponse{
		Success: true,
		Message: numberedMenu(prompt, options),
		Options: options,
	}
}

// SelectedChannel commits the channel choice onto the operator's default
// scheme and the contact preference table.
func (s *Service) SelectedChannel(ctx context.Context, req SelectedChannelRequest) StepResponse {
	const fallback = "Channel selection could not be saved."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("selected-channel", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	options, err := s.content.Options(ctx, tenantID, "channel", langKey)
	if err != nil {
		return s.fail("selected-channel", req.ContactID, err, fallback)
	}
	selected, ok := resolveSelection(req.Channel, options)
	if !ok {
		return StepResponse{Success: false, Message: fallback}
	}

	schemeID, err := s.directory.DefaultScheme(ctx, match.Schema, match.Operator.ID)
	if err != nil {
		return s.fail("selected-channel", req.ContactID, err, fallback)
	}
	channelID := indexOf(options, selected) + 1
	if err := s.directory.UpdateSchemeChannel(ctx, match.Schema, schemeID, channelID); err != nil {
		return s.fail("selected-channel", req.ContactID, err, fallback)
	}
	if err := s.prefs.UpsertChannel(ctx, tenantID, req.ContactID, selected); err != nil {
		return s.fail("selected-channel", req.ContactID, err, fallback)
	}

	template, err := s.content.Text(ctx, tenantID, "channel_selection_confirmation_template", langKey)
	if err != nil {
		return s.fail("selected-channel", req.ContactID, err, fallback)
	}

	return StepResponse{
		Success: true,
		Message: content.Render(template, map[string]string{"channel": selected}),
	}
}

// ItemSelection returns the main menu prompt with the tenant's item
// options.
func (s *Service) ItemSelection(ctx context.Context, req ContactRequest) StepResponse {
	const fallback = "Item selection could not be prepared."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("item-selection", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	prompt, err := s.content.Text(ctx, tenantID, "item_selection_prompt", langKey)
	if err != nil {
		return s.fail("item-selection", req.ContactID, err, fallback)
	}
	options, err := s.content.Options(ctx, tenantID, "item", langKey)
	if err != nil {
		return s.fail("item-selection", req.ContactID, err, fallback)
	}

	return StepResponse{
		Success: true,
		Message: numberedMenu(prompt, options),
		Options: options,
	}
}

// SelectedItem resolves the menu choice to its stable code so the bot flow
// can branch on it.
func (s *Service) SelectedItem(ctx context.Context, req SelectedItemRequest) StepResponse {
	const fallback = "Item selection could not be saved."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("selected-item", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	options, err := s.content.Options(ctx, tenantID, "item", langKey)
	if err != nil {
		return s.fail("selected-item", req.ContactID, err, fallback)
	}
	selected, ok := resolveSelection(req.Channel, options)
	if !ok {
		return StepResponse{Success: false, Message: fallback}
	}
	code := itemCode(selected, options)

	template, err := s.content.Text(ctx, tenantID, "item_selection_confirmation_template", langKey)
	if err != nil {
		return s.fail("selected-item", req.ContactID, err, fallback)
	}

	return StepResponse{
		Success:  true,
		Selected: code,
		Message: content.Render(template, map[string]string{
			"item":     selected,
			"selected": code,
		}),
	}
}

// MeterChange returns the localized meter-change reason list.
func (s *Service) MeterChange(ctx context.Context, req ContactRequest) StepResponse {
	const fallback = "Meter change reasons could not be prepared."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("meter-change", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	prompt, err := s.content.Text(ctx, tenantID, "meter_change_prompt", langKey)
	if err != nil {
		return s.fail("meter-change", req.ContactID, err, fallback)
	}
	reasons, err := s.content.Options(ctx, tenantID, "meter_change_reason", langKey)
	if err != nil {
		return s.fail("meter-change", req.ContactID, err, fallback)
	}

	return StepResponse{
		Success: true,
		Message: numberedMenu(prompt, reasons),
		Options: reasons,
	}
}

// TakeMeterReading validates the chosen meter-change reason and returns the
// localized reading instruction. No state changes here: the reason travels
// with the subsequent manual reading submission.
func (s *Service) TakeMeterReading(ctx context.Context, req TakeReadingRequest) StepResponse {
	const fallback = "Take meter reading prompt could not be prepared."

	match, err := s.directory.ResolveByContact(ctx, req.ContactID)
	if err != nil {
		return s.fail("take-meter-reading", req.ContactID, err, fallback)
	}
	tenantID := match.Operator.TenantID
	langKey := s.languageKey(ctx, match)

	reasons, err := s.content.Options(ctx, tenantID, "meter_change_reason", langKey)
	if err != nil {
		return s.fail("take-meter-reading", req.ContactID, err, fallback)
	}
	if _, ok := resolveSelection(req.Reason, reasons); !ok {
		return StepResponse{Success: false, Message: fallback}
	}

	prompt, err := s.content.Text(ctx, tenantID, "take_meter_reading_prompt", langKey)
	if err != nil {
		return s.fail("take-meter-reading", req.ContactID, err, fallback)
	}

	return StepResponse{Success: true, Message: prompt}
}
