// Package digest implements spec.md's circuit-identity sidecar: a compact,
// content-addressed fingerprint of a compiled circuit (run configuration,
// graph shape, and required lookups) that a verifier can check against
// before trusting a proving key, without re-loading the full graph.
// Encoded with protowire's low-level primitives directly (no generated
// .proto bindings exist in this module) — grounded on the pack's
// google.golang.org/protobuf dependency, used here the way a hand-rolled
// wire-compatible encoder would: field numbers and types fixed by this
// file's encode/decode pair acting as each other's schema.
package digest

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/zkmlgo/circuit/pkg/paramblock"
)

const (
	fieldScale          = protowire.Number(1)
	fieldBits           = protowire.Number(2)
	fieldLogRows        = protowire.Number(3)
	fieldNumConstraints = protowire.Number(4)
	fieldLookupName     = protowire.Number(5)
	fieldNodeCount      = protowire.Number(6)
)

// CircuitDigest is the decoded form of the fingerprint.
type CircuitDigest struct {
	Scale          int
	Bits           int
	LogRows        int
	NumConstraints int
	NodeCount      int
	LookupNames    []string // sorted, for a stable encoding
}

// FromParameterBlock builds a CircuitDigest from a compiled circuit's
// ParameterBlock and its node count.
func FromParameterBlock(p paramblock.ParameterBlock, nodeCount int) CircuitDigest {
	names := make([]string, len(p.RequiredLookups))
	for i, lk := range p.RequiredLookups {
		names[i] = lk.Name + "/" + lk.ParamSignature
	}
	sort.Strings(names)
	return CircuitDigest{
		Scale:          p.RunArgs.Scale,
		Bits:           p.RunArgs.Bits,
		LogRows:        p.RunArgs.LogRows,
		NumConstraints: p.NumConstraints,
		NodeCount:      nodeCount,
		LookupNames:    names,
	}
}

// Encode serialises d as a protobuf-wire-format byte string.
func Encode(d CircuitDigest) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldScale, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(d.Scale)))
	b = protowire.AppendTag(b, fieldBits, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(d.Bits)))
	b = protowire.AppendTag(b, fieldLogRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(d.LogRows)))
	b = protowire.AppendTag(b, fieldNumConstraints, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(d.NumConstraints)))
	b = protowire.AppendTag(b, fieldNodeCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(d.NodeCount)))
	for _, name := range d.LookupNames {
		b = protowire.AppendTag(b, fieldLookupName, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	return b
}

// Decode parses the wire format Encode produces back into a CircuitDigest.
func Decode(b []byte) (CircuitDigest, error) {
	var d CircuitDigest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return CircuitDigest{}, fmt.Errorf("digest: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldScale, fieldBits, fieldLogRows, fieldNumConstraints, fieldNodeCount:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return CircuitDigest{}, fmt.Errorf("digest: malformed varint: %w", protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldScale:
				d.Scale = int(int64(v))
			case fieldBits:
				d.Bits = int(int64(v))
			case fieldLogRows:
				d.LogRows = int(int64(v))
			case fieldNumConstraints:
				d.NumConstraints = int(int64(v))
			case fieldNodeCount:
				d.NodeCount = int(int64(v))
			}
		case fieldLookupName:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return CircuitDigest{}, fmt.Errorf("digest: malformed string: %w", protowire.ParseError(n))
			}
			b = b[n:]
			d.LookupNames = append(d.LookupNames, s)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return CircuitDigest{}, fmt.Errorf("digest: malformed field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return d, nil
}

// Fingerprint returns the SHA-256 hash of d's wire encoding, the short
// identity value a verifier actually compares.
func Fingerprint(d CircuitDigest) [32]byte {
	return sha256.Sum256(Encode(d))
}
