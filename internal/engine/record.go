package engine

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/epokhe/kvs/internal/wire"
)

// diskRecord wraps a wire.Command with a checksum of its encoded bytes. The
// JSON wire format already decodes self-delimited by construction; the
// checksum exists to catch a bit flip that still happens to parse as valid
// JSON, which a decode-success check alone would miss. Mirrors the teacher
// engine's per-record xxh3 checksum, carried over from its binary format.
type diskRecord struct {
	Cmd      wire.Command `json:"cmd"`
	Checksum uint64       `json:"crc"`
}

func encodeRecord(cmd wire.Command) ([]byte, error) {
	cmdBytes, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}

	buf, err := json.Marshal(diskRecord{Cmd: cmd, Checksum: xxh3.Hash(cmdBytes)})
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf, nil
}

// verify recomputes the checksum of rec.Cmd and compares it against the
// stored one.
func (rec diskRecord) verify() error {
	cmdBytes, err := json.Marshal(rec.Cmd)
	if err != nil {
		return fmt.Errorf("%w: re-encode for checksum: %v", ErrCorruption, err)
	}
	if xxh3.Hash(cmdBytes) != rec.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrCorruption)
	}
	return nil
}
