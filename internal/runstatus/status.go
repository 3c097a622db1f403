package runstatus

import "strings"

const (
	Idle              = "Idle"
	Connecting        = "Connecting"
	Connected         = "Connected"
	Reconnecting      = "Reconnecting"
	RealtimeOff       = "Realtime off"
	Polling           = "Polling"
	DisconnectedAuth  = "Disconnected (auth)"
	DisconnectedError = "Disconnected (error)"
	Stopped           = "Stopped"
)

const (
	KeyIdle              = "idle"
	KeyConnecting        = "connecting"
	KeyConnected         = "connected"
	KeyReconnecting      = "reconnecting"
	KeyRealtimeOff       = "realtime off"
	KeyPolling           = "polling"
	KeyDisconnectedAuth  = "disconnected (auth)"
	KeyDisconnectedError = "disconnected (error)"
	KeyStopped           = "stopped"
)

func Key(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
