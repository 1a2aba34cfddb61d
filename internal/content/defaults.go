package content

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// defaultContent maps a prompt category (the bare config key prefix) to its
// built-in fallback text. Parsed once at startup; a broken embedded file is
// a build defect, so failure panics.
var defaultContent = mustParseDefaults()

func mustParseDefaults() map[string]string {
	parsed := make(map[string]string)
	if err := yaml.Unmarshal(defaultsYAML, &parsed); err != nil {
		panic("content: invalid embedded defaults: " + err.Error())
	}
	return parsed
}
