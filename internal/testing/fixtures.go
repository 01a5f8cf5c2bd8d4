package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// ParameterText is a sectioned parameter file with lookup, tabular and
// empty sections. Lookup3Broken holds a line with a missing column.
const ParameterText = ` line comment
[Empty1]
[Lookup1]
0x1000 0    0 0
0x1000 1    0 1
0x1000 2    0 2
0x1001 0    1 0
[Lookup2]
0x1000 0    0 0
0x1000 1    0 1
0x1000 2    0 2
0x1001 0    1 0
[Lookup3Broken]
0x1000 0    0 0       
 0x1000 1    0 1 
0x1000 2    3  
0x1001 0    1 0
[Tabular1]
0x1000 a    0 0 3.14
0x1000 b    0 1 2.71
0x1000 c    0 2 1115
0x1001 d    1 0 137
[Empty2] 	# inline comment
[Empty3]
`

// WriteParameterFile writes content to a file in a test temp directory and
// returns its path.
func WriteParameterFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write parameter file: %v", err)
	}
	return path
}

// Hit is a small detector record used across tests.
type Hit struct {
	Board   int32
	Channel int32
	Toa     float32
}
