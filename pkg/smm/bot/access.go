package bot

import (
	"log/slog"
	"strings"
)

// DeniedMessage is the fixed reply for unauthorized callers.
const DeniedMessage = "Access denied."

// AccessManager gates every workflow entry point behind a static admin
// allow-list. Default is deny: an empty list means nobody gets in.
type AccessManager struct {
	admins map[string]struct{}
	logger *slog.Logger
}

// NewAccessManager creates an access manager from configured admin IDs.
func NewAccessManager(admins []string, logger *slog.Logger) *AccessManager {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]struct{}, len(admins))
	for _, id := range admins {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return &AccessManager{
		admins: set,
		logger: logger.With("component", "access"),
	}
}

// Authorize reports whether callerID belongs to the admin set.
func (m *AccessManager) Authorize(callerID string) bool {
	_, ok := m.admins[callerID]
	if !ok {
		m.logger.Info("access denied", "caller", callerID)
	}
	return ok
}
