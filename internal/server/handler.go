package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/epokhe/kvs/internal/engine"
	"github.com/epokhe/kvs/internal/wire"
)

// handleConnection decodes exactly one request, dispatches it to eng, and
// writes back exactly one response, then closes the connection: one
// request, one response, per TCP connection.
func handleConnection(eng *engine.Engine, conn net.Conn, log *zap.SugaredLogger) error {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	req, err := wire.DecodeRequest(reader)
	if err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	log.Debugw("received request", "request", req)

	resp, err := dispatch(eng, req)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if _, err := writer.Write(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush response: %w", err)
	}
	return nil
}

// dispatch runs req against eng and returns the encoded response bytes for
// the matching success or error-message variant. Engine errors never
// propagate as Go errors here: they are converted into the response's
// error-message field, same as any other successful dispatch.
func dispatch(eng *engine.Engine, req wire.Request) ([]byte, error) {
	switch {
	case req.Set != nil:
		var resp wire.SetResponse
		if err := eng.Set(req.Set.Key, req.Set.Value); err != nil {
			resp = wire.SetErr(err.Error())
		} else {
			resp = wire.SetOk()
		}
		return resp.Encode()

	case req.Get != nil:
		var resp wire.GetResponse
		val, err := eng.Get(req.Get.Key)
		if err != nil {
			resp = wire.GetErr(err.Error())
		} else {
			resp = wire.GetOk(val)
		}
		return resp.Encode()

	case req.Remove != nil:
		var resp wire.RemoveResponse
		if err := eng.Remove(req.Remove.Key); err != nil {
			resp = wire.RemoveErr(err.Error())
		} else {
			resp = wire.RemoveOk()
		}
		return resp.Encode()

	default:
		return nil, errors.New("request carries no recognized variant")
	}
}
