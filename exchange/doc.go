/*
Package exchange implements the request/response client of the boiler controller protocol.

A single persistent WebSocket carries every command. Each outbound frame is one selector byte
followed by a payload; the device answers with a frame starting with the same selector. There
is no request identifier on the wire, so the client keeps one FIFO of pending requests per
selector and allows only one unacknowledged frame at a time across all selectors.

# Connection lifecycle

The Client moves between three states:

	Disconnected --request/backoff--> Connecting --dialed--> Open
	     ^                                |                   |
	     +------ open timeout, dial error +                   |
	     +------ idle timeout, send error, peer close, Reset -+

Every transition into Disconnected closes the transport, rejects all pending requests with a
*ConnError, drops frames that were not transmitted yet and schedules a reconnect after a fixed
delay. A peer close code above 4000 means the credential was refused: the OnTokenRequired hook
runs first and its token is stored before the next connection attempt.

# Concurrency

All client state is owned by one control loop goroutine fed by a single event channel.
Dialing, reading, timers and hooks run in helper goroutines that only post events. Events
carry a connection generation, so anything produced by an earlier connection is ignored.

# Usage

	dialer := &exchange.WebSocketDialer{URL: "http://192.168.1.20/"}
	client, err := exchange.NewClient(ctx, dialer, exchange.WithIdleTimeout(10*time.Second))
	if err != nil {
		return err
	}
	defer client.Close()

	payload, err := client.SendRequest(ctx, exchange.Cmd('T'), nil)
*/
package exchange
