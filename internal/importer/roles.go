package importer

import "strings"

// humanLabel is the canonical author label for the human side.
const humanLabel = "User"

// humanRoles are the recognized synonyms for the human participant,
// including the non-English terms exports actually contain.
var humanRoles = map[string]bool{
	"user":        true,
	"human":       true,
	"you":         true,
	"me":          true,
	"用户":          true,
	"usuario":     true,
	"utilisateur": true,
	"benutzer":    true,
}

// assistantRoles are the recognized synonyms for the assistant side.
var assistantRoles = map[string]bool{
	"assistant": true,
	"ai":        true,
	"bot":       true,
	"model":     true,
	"chatbot":   true,
	"助手":        true,
	"助理":        true,
	"asistente": true,
}

// canonicalRole maps a source role to its canonical display label: "User"
// for human synonyms, the service display name for assistant synonyms.
// Unrecognized roles pass through as literal labels; the pipeline sanitizes
// them later.
func canonicalRole(role, serviceName string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); {
	case humanRoles[r]:
		return humanLabel
	case assistantRoles[r]:
		return serviceName
	default:
		return strings.TrimSpace(role)
	}
}
