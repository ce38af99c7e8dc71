// Package client implements the short-connection client side of the wire
// protocol: one TCP connection per request, exactly the inverse of what the
// server's per-connection handler expects.
package client

import (
	"bufio"
	"fmt"
	"net"

	"github.com/epokhe/kvs/internal/wire"
)

// RemoteError wraps the message the server sent back in an error-message
// response variant. It is the one error case unique to the client: every
// other failure (I/O, decode) is reported as whatever error the standard
// library or the wire package itself returned.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}

// Client talks to one server address, opening a fresh connection per call.
type Client struct {
	addr string
}

// New returns a client for addr. No connection is opened until a method is
// called.
func New(addr string) *Client {
	return &Client{addr: addr}
}

func (c *Client) connect() (net.Conn, *bufio.Reader, *bufio.Writer, error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial %s: %w", c.addr, err)
	}
	return conn, bufio.NewReader(conn), bufio.NewWriter(conn), nil
}

// Set asserts key maps to value.
func (c *Client) Set(key, value string) error {
	conn, reader, writer, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	buf, err := wire.NewSetRequest(key, value).Encode()
	if err != nil {
		return fmt.Errorf("encode set request: %w", err)
	}
	if _, err := writer.Write(buf); err != nil {
		return fmt.Errorf("send set request: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush set request: %w", err)
	}

	resp, err := wire.DecodeSetResponse(reader)
	if err != nil {
		return fmt.Errorf("decode set response: %w", err)
	}
	if !resp.IsOk() {
		return &RemoteError{Message: resp.ErrMsg()}
	}
	return nil
}

// Get returns key's current value, or nil if key has no live mapping.
func (c *Client) Get(key string) (*string, error) {
	conn, reader, writer, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	buf, err := wire.NewGetRequest(key).Encode()
	if err != nil {
		return nil, fmt.Errorf("encode get request: %w", err)
	}
	if _, err := writer.Write(buf); err != nil {
		return nil, fmt.Errorf("send get request: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("flush get request: %w", err)
	}

	resp, err := wire.DecodeGetResponse(reader)
	if err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !resp.IsOk() {
		return nil, &RemoteError{Message: resp.ErrMsg()}
	}
	return resp.Value(), nil
}

// Remove erases key's mapping.
func (c *Client) Remove(key string) error {
	conn, reader, writer, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	buf, err := wire.NewRemoveRequest(key).Encode()
	if err != nil {
		return fmt.Errorf("encode remove request: %w", err)
	}
	if _, err := writer.Write(buf); err != nil {
		return fmt.Errorf("send remove request: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush remove request: %w", err)
	}

	resp, err := wire.DecodeRemoveResponse(reader)
	if err != nil {
		return fmt.Errorf("decode remove response: %w", err)
	}
	if !resp.IsOk() {
		return &RemoteError{Message: resp.ErrMsg()}
	}
	return nil
}
