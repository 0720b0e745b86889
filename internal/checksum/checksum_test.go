package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	// sha256("") is a well known constant.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
}

func TestDigest_MatchesManualConcatenation(t *testing.T) {
	want := sha256.Sum256([]byte("run.sh\n#!/bin/sh\necho hi\n"))
	got := Digest("run.sh", "#!/bin/sh\necho hi\n")
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(want[:]), got)
	assert.False(t, strings.ContainsAny(got, "+/="), "digest must be URL safe and unpadded")
}

func TestDigest_PathParticipates(t *testing.T) {
	assert.NotEqual(t, Digest("a.sh", "x"), Digest("b.sh", "x"))
	assert.NotEqual(t, Digest("a.sh", "x"), Digest("a.sh", "y"))
}
