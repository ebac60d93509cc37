package exchange

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/websocket"
)

// SocketPath is the device's WebSocket endpoint, relative to the directory of the page address.
const SocketPath = "api/ws"

// SocketURL derives the WebSocket endpoint from the address the device's web page is served at:
// the scheme is swapped for its socket counterpart, the path is cut after its last '/' and
// SocketPath is appended. Query and fragment are dropped.
func SocketURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", pageURL)
	}

	dir := u.Path[:strings.LastIndex(u.Path, "/")+1]
	if dir == "" {
		dir = "/"
	}
	u.Path = dir + SocketPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// OriginURL returns scheme://host of the page address with an http(s) scheme.
func OriginURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	scheme := "http"
	if u.Scheme == "https" || u.Scheme == "wss" {
		scheme = "https"
	}

	return scheme + "://" + u.Host + "/", nil
}

// WebSocketDialer dials the device with golang.org/x/net/websocket.
type WebSocketDialer struct {
	// URL is the address of the device's web page, e.g. "http://192.168.1.20/".
	URL string
	// Origin overrides the Origin header. Defaults to the page's scheme and host.
	Origin string
	// WriteTimeout bounds every frame write. Zero means 5 seconds.
	WriteTimeout time.Duration
}

var _ Dialer = (*WebSocketDialer)(nil)

// Dial connects to the device presenting token as the "token" query parameter.
func (d *WebSocketDialer) Dial(ctx context.Context, token string) (Transport, error) {
	endpoint, err := SocketURL(d.URL)
	if err != nil {
		return nil, err
	}
	endpoint += "?" + url.Values{"token": []string{token}}.Encode()

	origin := d.Origin
	if origin == "" {
		if origin, err = OriginURL(d.URL); err != nil {
			return nil, err
		}
	}

	cfg, err := websocket.NewConfig(endpoint, origin)
	if err != nil {
		return nil, err
	}

	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &wsTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) Send(msg Message) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}

	if msg.Text {
		return websocket.Message.Send(t.conn, string(msg.Data))
	}

	return websocket.Message.Send(t.conn, msg.Data)
}

// Receive reads frame by frame so that the close code of a close frame can be reported;
// websocket.Message.Receive only surfaces io.EOF.
func (t *wsTransport) Receive() (Message, error) {
	for {
		fr, err := t.conn.NewFrameReader()
		if err != nil {
			return Message{}, &CloseError{Code: CloseAbnormal, Err: err}
		}

		if fr.PayloadType() == websocket.CloseFrame {
			return Message{}, readCloseFrame(fr)
		}

		fr, err = t.conn.HandleFrame(fr)
		if err != nil {
			return Message{}, &CloseError{Code: CloseAbnormal, Err: err}
		}
		if fr == nil { // ping or pong
			continue
		}

		data, err := io.ReadAll(fr)
		if err != nil {
			return Message{}, &CloseError{Code: CloseAbnormal, Err: err}
		}

		return Message{Data: data, Text: fr.PayloadType() == websocket.TextFrame}, nil
	}
}

func (t *wsTransport) Close() error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	err := t.conn.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

func readCloseFrame(r io.Reader) error {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return &CloseError{Code: CloseNoStatus}
	}

	return &CloseError{Code: int(binary.BigEndian.Uint16(buf[:]))}
}
