package audit

import (
	"strings"

	"golang.org/x/text/width"
)

// Signature pairs a failure fragment that can appear inside an otherwise
// successful transcript with the issue label reported to operators.
type Signature struct {
	Pattern string
	Issue   string
}

// signatures is matched in order; the first hit wins. Specific model
// signatures come before the generic catch-all.
var signatures = []Signature{
	{Pattern: "GPT-4o-mini API呼び出しエラー", Issue: "GPT-4o-mini APIエラー"},
	{Pattern: "API呼び出しエラー", Issue: "APIエラー"},
}

// Match tests a transcript against the signature table and returns the issue
// label of the first matching signature. Comparison is width-folded so
// full-width and half-width variants of the same text still match.
func Match(transcript string) (string, bool) {
	if strings.TrimSpace(transcript) == "" {
		return "", false
	}
	folded := width.Fold.String(transcript)
	for _, sig := range signatures {
		if strings.Contains(folded, width.Fold.String(sig.Pattern)) {
			return sig.Issue, true
		}
	}
	return "", false
}
