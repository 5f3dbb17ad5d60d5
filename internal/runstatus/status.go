package runstatus

import "strings"

const (
	Authenticated = "Authenticated"
	Verified      = "Session verified"
	Uploading     = "Uploading"
	Degraded      = "Degraded"
	Stopped       = "Stopped"
	AuthExpired   = "Stopped (auth)"
)

const (
	KeyAuthenticated = "authenticated"
	KeyVerified      = "session verified"
	KeyUploading     = "uploading"
	KeyDegraded      = "degraded"
	KeyStopped       = "stopped"
	KeyAuthExpired   = "stopped (auth)"
)

func Key(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
