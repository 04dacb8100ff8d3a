package conversation

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
	"github.com/franmoretti/tiendabot-backend/pkg/types"
)

// ModelReply is the envelope the model is contracted to return.
type ModelReply struct {
	Response string              `json:"respuesta"`
	Status   string              `json:"estado"`
	Order    types.ProposedOrder `json:"pedido"`
}

// ParseModelReply extracts the JSON envelope from raw model output. A
// strict parse is tried first; failing that, the outermost brace pair is
// extracted and parsed, which survives the model wrapping its JSON in
// prose or code fences.
func ParseModelReply(raw string) (ModelReply, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ModelReply{}, pkgerrors.New(pkgerrors.CodeValidation, "empty model reply")
	}

	var reply ModelReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err == nil {
		return reply, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return ModelReply{}, pkgerrors.New(pkgerrors.CodeValidation, "model reply contains no JSON object")
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &reply); err != nil {
		return ModelReply{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse model reply")
	}
	return reply, nil
}
