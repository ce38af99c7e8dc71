package wire

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestCommandRoundTrip(t *testing.T) {
	cases := []Command{
		NewSetCommand("foo", "bar"),
		NewSetCommand("", ""),
		NewRemoveCommand("foo"),
	}

	for _, cmd := range cases {
		buf, err := cmd.Encode()
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		decoded, n, err := DecodeCommand(buf)
		if err != nil {
			t.Fatalf("DecodeCommand failed: %v", err)
		}
		if n != len(buf) {
			t.Errorf("expected consumed length %d, got %d", len(buf), n)
		}

		switch {
		case cmd.Set != nil:
			if decoded.Set == nil || *decoded.Set != *cmd.Set {
				t.Errorf("Set mismatch: got %+v, want %+v", decoded.Set, cmd.Set)
			}
		case cmd.Remove != nil:
			if decoded.Remove == nil || *decoded.Remove != *cmd.Remove {
				t.Errorf("Remove mismatch: got %+v, want %+v", decoded.Remove, cmd.Remove)
			}
		}
	}
}

// TestConcatenatedCommandsDecodeOneAtATime verifies the self-delimiting
// property the codec promises: records written back-to-back with no
// separator decode one at a time off a shared stream.
func TestConcatenatedCommandsDecodeOneAtATime(t *testing.T) {
	var buf bytes.Buffer
	want := []Command{
		NewSetCommand("a", "1"),
		NewRemoveCommand("a"),
		NewSetCommand("b", "2"),
	}
	for _, cmd := range want {
		enc, err := cmd.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		buf.Write(enc)
	}

	dec := json.NewDecoder(&buf)
	for i, wantCmd := range want {
		var got Command
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", i, err)
		}
		if (got.Set == nil) != (wantCmd.Set == nil) || (got.Remove == nil) != (wantCmd.Remove == nil) {
			t.Errorf("record %d: variant mismatch: got %+v, want %+v", i, got, wantCmd)
		}
	}
}

func TestRequestVariants(t *testing.T) {
	reqs := []Request{
		NewSetRequest("k", "v"),
		NewGetRequest("k"),
		NewRemoveRequest("k"),
	}

	for _, req := range reqs {
		buf, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}

		var decoded Request
		dec := json.NewDecoder(bytes.NewReader(buf))
		if err := dec.Decode(&decoded); err != nil {
			t.Fatalf("Decode: %v", err)
		}

		if (decoded.Set == nil) != (req.Set == nil) ||
			(decoded.Get == nil) != (req.Get == nil) ||
			(decoded.Remove == nil) != (req.Remove == nil) {
			t.Errorf("variant mismatch: got %+v, want %+v", decoded, req)
		}
	}
}

func TestSetResponseRoundTrip(t *testing.T) {
	for _, resp := range []SetResponse{SetOk(), SetErr("boom")} {
		buf, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got SetResponse
		if err := json.Unmarshal(buf, &got); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got.IsOk() != resp.IsOk() || got.ErrMsg() != resp.ErrMsg() {
			t.Errorf("got %+v, want %+v", got, resp)
		}
	}
}

func TestGetResponseDistinguishesNoneFromErr(t *testing.T) {
	value := "bar"

	okSome, err := json.Marshal(GetOk(&value))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	okNone, err := json.Marshal(GetOk(nil))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	errResp, err := json.Marshal(GetErr("key not found"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var gotSome, gotNone, gotErr GetResponse
	if err := json.Unmarshal(okSome, &gotSome); err != nil {
		t.Fatalf("Unmarshal okSome: %v", err)
	}
	if err := json.Unmarshal(okNone, &gotNone); err != nil {
		t.Fatalf("Unmarshal okNone: %v", err)
	}
	if err := json.Unmarshal(errResp, &gotErr); err != nil {
		t.Fatalf("Unmarshal errResp: %v", err)
	}

	if !gotSome.IsOk() || gotSome.Value() == nil || *gotSome.Value() != "bar" {
		t.Errorf("gotSome = %+v", gotSome)
	}
	if !gotNone.IsOk() || gotNone.Value() != nil {
		t.Errorf("gotNone = %+v", gotNone)
	}
	if gotErr.IsOk() {
		t.Errorf("gotErr should not be Ok: %+v", gotErr)
	}
}
