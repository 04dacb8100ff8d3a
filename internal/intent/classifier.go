package intent

import (
	"regexp"
	"strings"

	"github.com/franmoretti/tiendabot-backend/pkg/enums"
)

// The pattern table is data, not scattered checks: each entry pairs an
// intent with the expression that detects it, so adding a phrasing is a
// one-line change covered by the classifier tests.
var (
	confirmPattern = regexp.MustCompile(`(?i)\b(confirmo|confirmar|confirmado|dale|listo|así está bien|de acuerdo)\b`)
	cancelPattern  = regexp.MustCompile(`(?i)\b(cancelar|cancelo|cancelá|cancela|anular|anulo|anulá)\b`)

	// A negation token anywhere before the cancel verb neutralizes it:
	// "no quiero cancelar", "ya no quiero cancelar, seguí".
	negationPattern = regexp.MustCompile(`(?i)\b(no|tampoco|nunca|jamás)\b`)
)

// Classify tags a user turn as an explicit confirmation, an explicit
// cancellation, or neither. Cancellation wins over confirmation when both
// patterns appear un-negated in the same message.
func Classify(text string) enums.Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return enums.IntentNeither
	}

	if loc := cancelPattern.FindStringIndex(trimmed); loc != nil {
		if !negatedBefore(trimmed, loc[0]) {
			return enums.IntentCancel
		}
	}
	if confirmPattern.MatchString(trimmed) {
		return enums.IntentConfirm
	}
	return enums.IntentNeither
}

func negatedBefore(text string, cancelStart int) bool {
	prefix := text[:cancelStart]
	return negationPattern.MatchString(prefix)
}
