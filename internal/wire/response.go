package wire

import (
	"encoding/json"
	"fmt"
)

// SetResponse, GetResponse and RemoveResponse are hand-rolled tagged unions:
// {"Ok": <payload>} on success, {"Err": "<message>"} on failure. A plain
// struct with `omitempty` pointer fields can't express this faithfully for
// GetResponse, because the success payload is itself optional (a missing
// key is Ok(None), not an error) — "Ok present but null" and "Ok absent"
// must stay distinguishable, so each response implements MarshalJSON and
// UnmarshalJSON directly instead of relying on struct tags.

type SetResponse struct {
	ok  bool
	err string
}

func SetOk() SetResponse            { return SetResponse{ok: true} }
func SetErr(msg string) SetResponse { return SetResponse{err: msg} }

func (r SetResponse) IsOk() bool    { return r.ok }
func (r SetResponse) ErrMsg() string { return r.err }

func (r SetResponse) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			Ok *struct{} `json:"Ok"`
		}{})
	}
	return json.Marshal(struct {
		Err string `json:"Err"`
	}{Err: r.err})
}

func (r *SetResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["Ok"]; ok {
		r.ok = true
		r.err = ""
		return nil
	}
	if msg, ok := raw["Err"]; ok {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return fmt.Errorf("decode SetResponse.Err: %w", err)
		}
		r.ok = false
		r.err = s
		return nil
	}
	return fmt.Errorf("decode SetResponse: neither Ok nor Err present")
}

type RemoveResponse struct {
	ok  bool
	err string
}

func RemoveOk() RemoveResponse            { return RemoveResponse{ok: true} }
func RemoveErr(msg string) RemoveResponse { return RemoveResponse{err: msg} }

func (r RemoveResponse) IsOk() bool     { return r.ok }
func (r RemoveResponse) ErrMsg() string { return r.err }

func (r RemoveResponse) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			Ok *struct{} `json:"Ok"`
		}{})
	}
	return json.Marshal(struct {
		Err string `json:"Err"`
	}{Err: r.err})
}

func (r *RemoveResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["Ok"]; ok {
		r.ok = true
		r.err = ""
		return nil
	}
	if msg, ok := raw["Err"]; ok {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return fmt.Errorf("decode RemoveResponse.Err: %w", err)
		}
		r.ok = false
		r.err = s
		return nil
	}
	return fmt.Errorf("decode RemoveResponse: neither Ok nor Err present")
}

// GetResponse's Ok payload is Option<string>: present-with-nil means "key
// not found", absent means the response is actually an Err.
type GetResponse struct {
	ok    bool
	value *string
	err   string
}

func GetOk(value *string) GetResponse { return GetResponse{ok: true, value: value} }
func GetErr(msg string) GetResponse   { return GetResponse{err: msg} }

func (r GetResponse) IsOk() bool      { return r.ok }
func (r GetResponse) Value() *string  { return r.value }
func (r GetResponse) ErrMsg() string  { return r.err }

func (r GetResponse) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			Ok *string `json:"Ok"`
		}{Ok: r.value})
	}
	return json.Marshal(struct {
		Err string `json:"Err"`
	}{Err: r.err})
}

func (r *GetResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["Ok"]; ok {
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("decode GetResponse.Ok: %w", err)
		}
		r.ok = true
		r.value = s
		r.err = ""
		return nil
	}
	if msg, ok := raw["Err"]; ok {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return fmt.Errorf("decode GetResponse.Err: %w", err)
		}
		r.ok = false
		r.err = s
		return nil
	}
	return fmt.Errorf("decode GetResponse: neither Ok nor Err present")
}
