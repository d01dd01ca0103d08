package contenthash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	inputs := []string{"", "a", "Submit", "héllo wörld", "line1\nline2", "  spaced  "}
	for _, in := range inputs {
		assert.Equal(t, Hash(in), Hash(in), "hash of %q must be stable", in)
	}
}

func TestHash_EmptyString(t *testing.T) {
	assert.Equal(t, EmptyHash, Hash(""))
}

func TestHash_Format(t *testing.T) {
	digest := Hash("anything")
	assert.Len(t, digest, 64)
	assert.True(t, IsDigest(digest))
}

func TestHash_NoCollisions(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		in := fmt.Sprintf("input-%d", i)
		digest := Hash(in)
		if prev, ok := seen[digest]; ok {
			t.Fatalf("collision between %q and %q", prev, in)
		}
		seen[digest] = in
	}
}

func TestHash_ByteExact(t *testing.T) {
	// Differing only in whitespace or case must produce different digests;
	// there is no normalization.
	assert.NotEqual(t, Hash("Submit"), Hash("submit"))
	assert.NotEqual(t, Hash("Submit"), Hash("Submit "))
}

func TestIsDigest(t *testing.T) {
	assert.True(t, IsDigest(EmptyHash))
	assert.False(t, IsDigest(""))
	assert.False(t, IsDigest("not-a-digest"))
	// Uppercase hex is rejected; the contract is lowercase.
	assert.False(t, IsDigest("E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"))
}
