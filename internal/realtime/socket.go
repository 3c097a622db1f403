package realtime

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
)

const linkReadLimit = 1 << 20

// Link is one live realtime connection. Read blocks for the next text frame.
type Link interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int, reason string) error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Link, error)
}

// WebsocketDialer dials the realtime endpoint over a websocket. The HTTP
// client, when set, must carry no whole-request timeout: the connection is
// long-lived.
type WebsocketDialer struct {
	HTTPClient *http.Client
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Link, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(linkReadLimit)
	return &websocketLink{conn: conn}, nil
}

type websocketLink struct {
	conn *websocket.Conn
}

func (l *websocketLink) Read(ctx context.Context) ([]byte, error) {
	_, data, err := l.conn.Read(ctx)
	if err != nil {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, &CloseError{Code: int(closeErr.Code), Reason: closeErr.Reason}
		}
		return nil, err
	}
	return data, nil
}

func (l *websocketLink) Write(ctx context.Context, data []byte) error {
	return l.conn.Write(ctx, websocket.MessageText, data)
}

func (l *websocketLink) Close(code int, reason string) error {
	return l.conn.Close(websocket.StatusCode(code), reason)
}
