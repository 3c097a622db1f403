package view

import "fmt"

// Mouse hit-target ids registered with bubblezone. Clickable elements mark
// themselves with one of these during render so ReduceMouse can resolve hits
// by id instead of coordinate math.
const (
	zoneTabOverview = "tab:overview"
	zoneTabSettings = "tab:settings"

	zoneOverviewConnect   = "overview:connect"
	zoneOverviewMarkRead  = "overview:mark-read"
	zoneOverviewLogs      = "overview:logs"
	zoneOverviewQuit      = "overview:quit"
	zoneOverviewLogsDebug = "overview:logs-debug"

	zoneSettingsBrowse      = "settings:browse"
	zoneSettingsAutoConnect = "settings:auto-connect"
	zoneSettingsSave        = "settings:save"
	zoneSettingsCancel      = "settings:cancel"

	zoneDialogQuitCancel  = "dialog:quit-cancel"
	zoneDialogQuitAccept  = "dialog:quit-accept"
	zoneDialogUpdateLater = "dialog:update-later"
	zoneDialogUpdateOpen  = "dialog:update-open"
)

// zoneSettingsInput names the hit target for the nth settings text field.
func zoneSettingsInput(index int) string {
	return fmt.Sprintf("settings:input-%d", index)
}
