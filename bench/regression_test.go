package bench

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const baselineOutput = `goos: linux
goarch: amd64
pkg: github.com/kenneth/creditstream/cipher
BenchmarkEncryptingSinkThroughput-8   	     100	  10000000 ns/op	1048576 B/op	      10 allocs/op
PASS
`

const candidateOutputFaster = `goos: linux
goarch: amd64
pkg: github.com/kenneth/creditstream/cipher
BenchmarkEncryptingSinkThroughput-8   	     120	   8000000 ns/op	1048576 B/op	      10 allocs/op
PASS
`

const candidateOutputSlower = `goos: linux
goarch: amd64
pkg: github.com/kenneth/creditstream/cipher
BenchmarkEncryptingSinkThroughput-8   	      50	  25000000 ns/op	1048576 B/op	      10 allocs/op
PASS
`

func TestCompareBenchmarksNoRegression(t *testing.T) {
	report, err := CompareBenchmarks([]byte(baselineOutput), []byte(candidateOutputFaster))
	require.NoError(t, err)
	require.NotEmpty(t, report.Text)
	require.Empty(t, report.Regressed(10))
}

func TestCompareBenchmarksDetectsRegression(t *testing.T) {
	report, err := CompareBenchmarks([]byte(baselineOutput), []byte(candidateOutputSlower))
	require.NoError(t, err)
	require.Contains(t, report.Regressed(10), "BenchmarkEncryptingSinkThroughput")
}

func TestCompareBenchmarksIgnoresUnrelatedText(t *testing.T) {
	report, err := CompareBenchmarks([]byte("not benchmark output\n"), []byte(baselineOutput))
	require.NoError(t, err)
	require.Empty(t, report.Tables)
}
