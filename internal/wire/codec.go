// Package wire defines the self-delimiting JSON-compatible encoding shared by
// the on-disk command log and the client/server protocol.
//
// Every value defined here decodes with a single call to a streaming
// json.Decoder: Decode returns exactly one JSON value per call. The decoder
// may read ahead from the underlying reader into its own buffer, so records
// or frames written back-to-back with no separator are read back one at a
// time by calling Decode repeatedly on the same decoder.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command is the on-disk record: a tagged union of Set and Remove. Exactly
// one of the two fields is non-nil. Get is never persisted, so it has no
// place here.
type Command struct {
	Set    *SetCommand    `json:"Set,omitempty"`
	Remove *RemoveCommand `json:"Remove,omitempty"`
}

type SetCommand struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type RemoveCommand struct {
	Key string `json:"key"`
}

// NewSetCommand builds the Set variant of Command.
func NewSetCommand(key, value string) Command {
	return Command{Set: &SetCommand{Key: key, Value: value}}
}

// NewRemoveCommand builds the Remove variant of Command.
func NewRemoveCommand(key string) Command {
	return Command{Remove: &RemoveCommand{Key: key}}
}

// Encode renders a command as its self-delimiting JSON form.
func (c Command) Encode() ([]byte, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return buf, nil
}

// DecodeCommand reads exactly one command from buf and reports how many
// bytes that command occupied.
func DecodeCommand(buf []byte) (Command, int, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	var cmd Command
	if err := dec.Decode(&cmd); err != nil {
		return Command{}, 0, err
	}
	return cmd, int(dec.InputOffset()), nil
}

// Request is the wire tagged union of Set/Get/Remove requests. Exactly one
// field is non-nil.
type Request struct {
	Set    *SetCommand    `json:"Set,omitempty"`
	Get    *GetRequest    `json:"Get,omitempty"`
	Remove *RemoveCommand `json:"Remove,omitempty"`
}

type GetRequest struct {
	Key string `json:"key"`
}

func NewSetRequest(key, value string) Request {
	return Request{Set: &SetCommand{Key: key, Value: value}}
}

func NewGetRequest(key string) Request {
	return Request{Get: &GetRequest{Key: key}}
}

func NewRemoveRequest(key string) Request {
	return Request{Remove: &RemoveCommand{Key: key}}
}
