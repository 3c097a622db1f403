package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CloseCodeShutdown marks a deliberate close from either side. It never
// triggers a reconnect.
const CloseCodeShutdown = 3000

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("connstate(%d)", int(s))
	}
}

type SubState int

const (
	SubUnsubscribed SubState = iota
	SubSubscribing
	SubSubscribed
	SubError
)

func (s SubState) String() string {
	switch s {
	case SubUnsubscribed:
		return "unsubscribed"
	case SubSubscribing:
		return "subscribing"
	case SubSubscribed:
		return "subscribed"
	case SubError:
		return "error"
	default:
		return fmt.Sprintf("substate(%d)", int(s))
	}
}

type ReconnectPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{MaxAttempts: 5, Delay: 3 * time.Second}
}

// TokenSource supplies fresh realtime credentials. Implementations must not
// cache; the session asks again on every attempt.
type TokenSource interface {
	ConnectionToken(ctx context.Context) (string, error)
	ChannelToken(ctx context.Context, channel string) (string, error)
}

type Handlers struct {
	OnStateChange        func(ConnState)
	OnSubscriptionChange func(channel string, state SubState)
	OnPublication        func(channel string, data json.RawMessage)
	OnError              func(error)
}

type SessionConfig struct {
	URL        string
	Channels   []string
	ClientName string
	Tokens     TokenSource
	Dialer     Dialer
	Policy     ReconnectPolicy
	Handlers   Handlers
}

var (
	ErrAlreadyRunning     = errors.New("realtime session already running")
	ErrReconnectExhausted = errors.New("realtime reconnect attempts exhausted")
)

// TokenFetchError marks a failed credential fetch inside a connect or
// subscribe attempt.
type TokenFetchError struct {
	Op  string
	Err error
}

func (e *TokenFetchError) Error() string {
	return fmt.Sprintf("%s token fetch failed: %v", e.Op, e.Err)
}

func (e *TokenFetchError) Unwrap() error { return e.Err }

// CloseError carries the websocket close code observed when a link drops.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("connection closed: %d %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("connection closed: %d", e.Code)
}

func isShutdownClose(err error) bool {
	var closeErr *CloseError
	return errors.As(err, &closeErr) && closeErr.Code == CloseCodeShutdown
}

// Wire frames. One JSON object per text message; the server's ping is an
// empty object the client echoes back.

type clientCommand struct {
	ID        uint32            `json:"id,omitempty"`
	Connect   *connectRequest   `json:"connect,omitempty"`
	Subscribe *subscribeRequest `json:"subscribe,omitempty"`
}

type connectRequest struct {
	Token string `json:"token,omitempty"`
	Name  string `json:"name,omitempty"`
}

type subscribeRequest struct {
	Channel string `json:"channel"`
	Token   string `json:"token,omitempty"`
}

type serverReply struct {
	ID        uint32           `json:"id,omitempty"`
	Error     *replyError      `json:"error,omitempty"`
	Connect   *connectResult   `json:"connect,omitempty"`
	Subscribe *subscribeResult `json:"subscribe,omitempty"`
	Push      *pushFrame       `json:"push,omitempty"`
}

type replyError struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

type connectResult struct {
	Client string `json:"client"`
	Ping   int    `json:"ping"`
}

type subscribeResult struct{}

type pushFrame struct {
	Channel string       `json:"channel"`
	Pub     *publication `json:"pub,omitempty"`
}

type publication struct {
	Data json.RawMessage `json:"data"`
}
