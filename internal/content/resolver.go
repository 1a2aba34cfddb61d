package content

import (
	"context"
	"regexp"
	"strings"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/logger"
)

// DefaultLanguageKey is the key used when an operator has no language
// preference or the preference cannot be resolved.
const DefaultLanguageKey = "english"

// languageOptionPrefix is the key family holding the tenant's language
// display names (language_1, language_2, ...).
const languageOptionPrefix = "language"

// Store is the persistence port the resolver reads through.
type Store interface {
	FindValue(ctx context.Context, tenantID int, key string) (string, bool, error)
	ListLocalized(ctx context.Context, tenantID int, prefix, langKey string) ([]string, error)
	ListGeneric(ctx context.Context, tenantID int, prefix string) ([]string, error)
}

// Resolver applies the language fallback cascade over tenant content. Every
// prompt category goes through the same two methods so fallback order cannot
// drift between categories.
type Resolver struct {
	store Store
	log   *logger.Logger
}

// NewResolver creates a content resolver.
func NewResolver(store Store, log *logger.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Text resolves a scalar prompt or template for the given category prefix:
// <prefix>_<langKey>, then <prefix>_english, then the bare <prefix>, then
// the embedded default for the category. Only when all four are absent does
// it fail.
func (r *Resolver) Text(ctx context.Context, tenantID int, prefix, langKey string) (string, error) {
	if langKey == "" {
		langKey = DefaultLanguageKey
	}

	keys := []string{prefix + "_" + langKey}
	if langKey != DefaultLanguageKey {
		keys = append(keys, prefix+"_"+DefaultLanguageKey)
	}
	keys = append(keys, prefix)

	for _, key := range keys {
		value, ok, err := r.store.FindValue(ctx, tenantID, key)
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "resolve content", err).WithOp("content.Text")
		}
		if ok {
			return value, nil
		}
	}

	if fallback, ok := defaultContent[prefix]; ok {
		r.log.Debug("content fell back to embedded default", "tenant_id", tenantID, "prefix", prefix)
		return fallback, nil
	}

	return "", apperr.NotFound("no content configured for " + prefix)
}

// Options resolves an ordered option list for the given category prefix.
// The localized set (<prefix>_<n>_<langKey>) wins whenever at least one
// localized row exists; otherwise the generic set (<prefix>_<n>) is used.
// The two sets are never mixed.
func (r *Resolver) Options(ctx context.Context, tenantID int, prefix, langKey string) ([]string, error) {
	if langKey == "" {
		langKey = DefaultLanguageKey
	}

	localized, err := r.store.ListLocalized(ctx, tenantID, prefix, langKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "resolve options", err).WithOp("content.Options")
	}
	if len(localized) > 0 {
		return localized, nil
	}

	generic, err := r.store.ListGeneric(ctx, tenantID, prefix)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "resolve options", err).WithOp("content.Options")
	}
	if len(generic) == 0 {
		return nil, apperr.NotFound("no options configured for " + prefix)
	}
	return generic, nil
}

// LanguageOptions returns the tenant's configured language display names in
// order (language_1, language_2, ...).
func (r *Resolver) LanguageOptions(ctx context.Context, tenantID int) ([]string, error) {
	options, err := r.store.ListGeneric(ctx, tenantID, languageOptionPrefix)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list languages", err).WithOp("content.LanguageOptions")
	}
	if len(options) == 0 {
		return nil, apperr.NotFound("no language options configured")
	}
	return options, nil
}

// LanguageKeyFor maps an operator's stored language id to a normalized
// language key. Ids index into the tenant's language options one-based;
// anything unresolvable falls back to english rather than failing, since a
// missing preference should never block the conversation.
func (r *Resolver) LanguageKeyFor(ctx context.Context, tenantID, languageID int) string {
	if languageID <= 0 {
		return DefaultLanguageKey
	}
	options, err := r.store.ListGeneric(ctx, tenantID, languageOptionPrefix)
	if err != nil || languageID > len(options) {
		return DefaultLanguageKey
	}
	return NormalizeLanguageKey(options[languageID-1])
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeLanguageKey reduces a language display name to the key used in
// config key suffixes. Known synonyms map explicitly so that localized
// labels stored in preferences resolve to the same key family.
func NormalizeLanguageKey(display string) string {
	raw := strings.TrimSpace(display)
	lower := strings.ToLower(raw)

	switch {
	case raw == "हिंदी" || raw == "हिन्दी" || lower == "hindi":
		return "hindi"
	case lower == "english" || lower == "inglish":
		return "english"
	}

	return strings.Trim(nonKeyChars.ReplaceAllString(lower, "_"), "_")
}

// Render substitutes {name}-style placeholders. Placeholders with no entry
// in vars are left verbatim.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
