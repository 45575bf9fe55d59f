package board

import (
	"encoding/json"
	"fmt"
	"time"
)

// Revision is one entry of a board's change history.
type Revision struct {
	Index  int
	Hash   string
	Actor  string
	Seq    uint64
	Deps   []string
	Author string
	Action ActionType
	Time   time.Time
	// Snapshot is the whole board as of this revision. Only set when a single
	// revision is requested.
	Snapshot *Document
}

type metaRecord struct {
	Author string          `json:"author"`
	Action json.RawMessage `json:"action"`
}

// EncodeMeta renders changeset metadata as a commit message.
func EncodeMeta(m Meta) (string, error) {
	author := m.Author
	if author == "" {
		author = "Unknown"
	}
	rec := metaRecord{Author: author}
	if m.Action != nil {
		raw, err := EncodeAction(m.Action)
		if err != nil {
			return "", err
		}
		rec.Action = raw
	}
	out, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode meta: %w", err)
	}
	return string(out), nil
}

// DecodeMeta reads the author and action type back out of a commit message. Messages
// written by other tools decode to an empty author and type without error.
func DecodeMeta(msg string) (author string, action ActionType) {
	var rec metaRecord
	if err := json.Unmarshal([]byte(msg), &rec); err != nil {
		return "", ""
	}
	var head struct {
		Type ActionType `json:"type"`
	}
	_ = json.Unmarshal(rec.Action, &head)
	return rec.Author, head.Type
}
