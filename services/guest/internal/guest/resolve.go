package guest

import (
	"net/url"
	"strings"
)

// Query parameters the dashboard URL carries after table selection.
const (
	ParamTableID     = "tableId"
	ParamSessionID   = "sessionId"
	ParamTableNumber = "tableNumber"
)

// ResolveSession picks the active session. A complete stored session always
// wins; URL parameters are only consulted when the store has none.
func ResolveSession(stored Session, params url.Values) (Session, bool) {
	if stored.Complete() {
		return stored, true
	}

	fromParams := Session{
		TableID:     strings.TrimSpace(params.Get(ParamTableID)),
		SessionID:   strings.TrimSpace(params.Get(ParamSessionID)),
		TableNumber: strings.TrimSpace(params.Get(ParamTableNumber)),
	}
	if fromParams.Complete() {
		return fromParams, true
	}

	return Session{}, false
}
