// Package smastore is the SMA Store: it persists, loads and removes per-predicate Sparse
// Materialised Aggregate artifacts as individual files under a base directory, keyed by
// smaq.PredicateKey. Files are written atomically (temp file + rename) so a reader never
// observes a partially-written artifact.
package smastore

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/lychee-technology/smaq"
)

const (
	artifactMagic   = "SMA1"
	artifactVersion = byte(1)
)

// Artifact is one SMA: the bounds used for Skip/Outlier-Read decisions plus the
// materialised outlier rows, per spec §3/§4.2.
type Artifact struct {
	Key    smaq.PredicateKey `json:"key"`
	Column string            `json:"column"`
	Op     smaq.Op           `json:"op"`

	Min float64 `json:"min"`
	Max float64 `json:"max"`

	LowerThreshold float64 `json:"lowerThreshold"`
	UpperThreshold float64 `json:"upperThreshold"`

	Outliers *smaq.Table `json:"-"`

	// SchemaFingerprint hashes the source table's column names so a reader inspecting an
	// artifact file can tell which file schema produced it. It never affects skip/outlier
	// /scan decisions.
	SchemaFingerprint string `json:"schemaFingerprint"`
	// OutlierRowCount is the number of materialised outlier rows, carried in the header so
	// it is visible without decoding the Arrow payload.
	OutlierRowCount int `json:"outlierRowCount"`

	BuiltAt      time.Time `json:"builtAt"`
	BuiltAtQuery int64     `json:"builtAtQueryId"`
}

// artifactHeader is the JSON portion of the on-disk framing: everything about an Artifact
// except its outlier rows, which are carried separately as an Arrow IPC payload.
type artifactHeader struct {
	Key               smaq.PredicateKey `json:"key"`
	Column            string            `json:"column"`
	Op                smaq.Op           `json:"op"`
	Min               float64           `json:"min"`
	Max               float64           `json:"max"`
	LowerThreshold    float64           `json:"lowerThreshold"`
	UpperThreshold    float64           `json:"upperThreshold"`
	SchemaFingerprint string            `json:"schemaFingerprint"`
	OutlierRowCount   int               `json:"outlierRowCount"`
	BuiltAt           time.Time         `json:"builtAt"`
	BuiltAtQuery      int64             `json:"builtAtQueryId"`
}

// columnFingerprint hashes a table's ordered column names with FNV-1a, so artifacts built
// from differently-shaped files are visibly distinguishable without decoding the outlier
// payload.
func columnFingerprint(columns []string) string {
	h := fnv.New64a()
	for _, c := range columns {
		_, _ = h.Write([]byte(c))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// encodeArtifact frames an Artifact as [4-byte magic][1-byte version][4-byte BE header
// length][JSON header][Arrow IPC outlier table], per spec §4.2.
func encodeArtifact(a *Artifact) ([]byte, error) {
	outliers := a.Outliers
	if outliers == nil {
		outliers = &smaq.Table{}
	}

	header := artifactHeader{
		Key:               a.Key,
		Column:            a.Column,
		Op:                a.Op,
		Min:               a.Min,
		Max:               a.Max,
		LowerThreshold:    a.LowerThreshold,
		UpperThreshold:    a.UpperThreshold,
		SchemaFingerprint: a.SchemaFingerprint,
		OutlierRowCount:   len(outliers.Rows),
		BuiltAt:           a.BuiltAt,
		BuiltAtQuery:      a.BuiltAtQuery,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact header: %w", err)
	}

	body, err := encodeTable(outliers)
	if err != nil {
		return nil, fmt.Errorf("encode outlier table: %w", err)
	}

	buf := make([]byte, 0, 4+1+4+len(headerBytes)+len(body))
	buf = append(buf, []byte(artifactMagic)...)
	buf = append(buf, artifactVersion)

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(headerBytes)))
	buf = append(buf, lenBuf...)

	buf = append(buf, headerBytes...)
	buf = append(buf, body...)
	return buf, nil
}

// decodeArtifact reverses encodeArtifact.
func decodeArtifact(data []byte) (*Artifact, error) {
	if len(data) < 4+1+4 {
		return nil, fmt.Errorf("artifact file too short (%d bytes)", len(data))
	}
	if string(data[:4]) != artifactMagic {
		return nil, fmt.Errorf("bad artifact magic %q", data[:4])
	}
	version := data[4]
	if version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", version)
	}
	headerLen := binary.BigEndian.Uint32(data[5:9])
	rest := data[9:]
	if uint32(len(rest)) < headerLen {
		return nil, fmt.Errorf("artifact header length %d exceeds remaining %d bytes", headerLen, len(rest))
	}

	var header artifactHeader
	if err := json.Unmarshal(rest[:headerLen], &header); err != nil {
		return nil, fmt.Errorf("unmarshal artifact header: %w", err)
	}

	outliers, err := decodeTable(rest[headerLen:])
	if err != nil {
		return nil, fmt.Errorf("decode outlier table: %w", err)
	}

	return &Artifact{
		Key:               header.Key,
		Column:            header.Column,
		Op:                header.Op,
		Min:               header.Min,
		Max:               header.Max,
		LowerThreshold:    header.LowerThreshold,
		UpperThreshold:    header.UpperThreshold,
		SchemaFingerprint: header.SchemaFingerprint,
		OutlierRowCount:   header.OutlierRowCount,
		Outliers:          outliers,
		BuiltAt:           header.BuiltAt,
		BuiltAtQuery:      header.BuiltAtQuery,
	}, nil
}
