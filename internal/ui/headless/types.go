package headless

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"unpod-notifier/internal/dispatch"
	"unpod-notifier/internal/logging"
	"unpod-notifier/internal/runtime"
	"unpod-notifier/internal/ui/headless/feed"
	headlessview "unpod-notifier/internal/ui/headless/view"
)

const headlessLogLineLimit = 5_000

const (
	minLogPanelHeight      = 8
	nonLogLayoutReserveMin = 24
)

type logMsg string
type statusMsg string
type tickMsg struct{}
type notificationMsg dispatch.Notification
type unreadMsg int

// badgeMsg carries a badge count from the notify bridge into the program so
// the window title update happens on the render loop.
type badgeMsg int

type updateAvailableMsg struct {
	tag string
	url string
}

type openReleaseResultMsg struct {
	url string
	err error
}

type runDoneMsg struct {
	err error
}

type startResultMsg struct {
	err error
}

type markReadResultMsg struct {
	err error
}

type quitNowMsg struct{}

type statusKind int

const (
	statusIdle statusKind = iota
	statusConnecting
	statusConnected
	statusPolling
	statusStopping
	statusError
)

type modelDeps struct {
	runner      *runtime.Controller
	logger      *logging.Logger
	bridge      *tuiBridge
	unsubscribe func()
	rootCtx     context.Context
	rootCancel  context.CancelFunc
	program     *tea.Program
}

type modelChannels struct {
	logCh    chan string
	notifCh  chan dispatch.Notification
	statusCh chan string
	unreadCh chan int
	updateCh chan updateAvailableMsg
}

type modelRuntime struct {
	running    bool
	connecting bool
	quitting   bool
	status     string
	kind       statusKind

	unread          int
	notifications   []dispatch.Notification
	feedRows        []feed.Row
	feedDetail      string
	lastFeedRefresh time.Time

	dismissedTag   string
	updatePrompted string
}

type headlessModel struct {
	buildVersion string
	pollInterval int
	modelDeps
	modelChannels
	modelRuntime
	cleanupOnce sync.Once
	ui          headlessview.State
}
