// Package dist is the binary wire format for script values. Values are
// reduced to plain trees (nil, bool, int64, float64, string, []any and
// map[string]any) and encoded as canonical CBOR, so equal trees always
// produce identical bytes and can be content-addressed.
package dist

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding for deterministic output.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes a plain tree. Any other Go type is rejected.
func Marshal(tree any) ([]byte, error) {
	if err := check(tree, 0); err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(tree)
}

// Unmarshal decodes CBOR bytes into a plain tree.
func Unmarshal(data []byte) (any, error) {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("dist: unmarshal value: %w", err)
	}
	return normalize(raw)
}

// maxDepth bounds nesting so cyclic input cannot recurse forever.
const maxDepth = 512

func check(v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("dist: value nested deeper than %d levels", maxDepth)
	}
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return nil
	case []any:
		for _, item := range x {
			if err := check(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		for _, item := range x {
			if err := check(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("dist: cannot encode %T", v)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("dist: integer %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []byte:
		return string(x), nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("dist: unsupported CBOR item %T", v)
}

// ---------------------------------------------------------------------------
// Content addressing
// ---------------------------------------------------------------------------

// Digest is the SHA-256 of a tree's canonical encoding.
func Digest(tree any) ([32]byte, error) {
	data, err := Marshal(tree)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Envelope carries an encoded tree with its content hash.
type Envelope struct {
	Hash    [32]byte `cbor:"1,keyasint"`
	Payload []byte   `cbor:"2,keyasint"`
	Labels  []string `cbor:"3,keyasint,omitempty"`
}

// Seal encodes tree into an envelope. Labels are sorted.
func Seal(tree any, labels ...string) ([]byte, error) {
	payload, err := Marshal(tree)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	env := Envelope{Hash: sha256.Sum256(payload), Payload: payload, Labels: sorted}
	return cborEncMode.Marshal(&env)
}

// Open decodes an envelope, verifies its hash and returns the tree.
func Open(data []byte) (any, *Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("dist: unmarshal envelope: %w", err)
	}
	computed := sha256.Sum256(env.Payload)
	if !bytes.Equal(computed[:], env.Hash[:]) {
		return nil, nil, fmt.Errorf("dist: hash mismatch: declared %x, computed %x", env.Hash, computed)
	}
	tree, err := Unmarshal(env.Payload)
	if err != nil {
		return nil, nil, err
	}
	return tree, &env, nil
}
