package sink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	target, err := ParseTarget("s3://my-bucket/path/to/object.bin")
	require.NoError(t, err)
	require.Equal(t, Target{Bucket: "my-bucket", Key: "path/to/object.bin"}, target)
}

func TestParseTargetRejectsNonS3URI(t *testing.T) {
	_, err := ParseTarget("https://example.com/object")
	require.Error(t, err)
}

func TestParseTargetRejectsMissingKey(t *testing.T) {
	_, err := ParseTarget("s3://my-bucket")
	require.Error(t, err)
}

func TestParseTargetRejectsMissingBucket(t *testing.T) {
	_, err := ParseTarget("s3:///key")
	require.Error(t, err)
}
