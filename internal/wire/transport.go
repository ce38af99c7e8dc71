package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// Encode renders a request as its self-delimiting JSON form.
func (r Request) Encode() ([]byte, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return buf, nil
}

// DecodeRequest reads exactly one request from r. The decoder it uses may
// read bytes past the end of that request into its own buffer; those bytes
// are discarded. Used on the server side of a connection, which reads only
// one request per connection.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// Encode renders a SetResponse as its self-delimiting JSON form.
func (r SetResponse) Encode() ([]byte, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode SetResponse: %w", err)
	}
	return buf, nil
}

// DecodeSetResponse reads exactly one SetResponse from r.
func DecodeSetResponse(r io.Reader) (SetResponse, error) {
	var resp SetResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return SetResponse{}, fmt.Errorf("decode SetResponse: %w", err)
	}
	return resp, nil
}

// Encode renders a RemoveResponse as its self-delimiting JSON form.
func (r RemoveResponse) Encode() ([]byte, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode RemoveResponse: %w", err)
	}
	return buf, nil
}

// DecodeRemoveResponse reads exactly one RemoveResponse from r.
func DecodeRemoveResponse(r io.Reader) (RemoveResponse, error) {
	var resp RemoveResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return RemoveResponse{}, fmt.Errorf("decode RemoveResponse: %w", err)
	}
	return resp, nil
}

// Encode renders a GetResponse as its self-delimiting JSON form.
func (r GetResponse) Encode() ([]byte, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode GetResponse: %w", err)
	}
	return buf, nil
}

// DecodeGetResponse reads exactly one GetResponse from r.
func DecodeGetResponse(r io.Reader) (GetResponse, error) {
	var resp GetResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return GetResponse{}, fmt.Errorf("decode GetResponse: %w", err)
	}
	return resp, nil
}
