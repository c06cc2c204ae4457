package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResolveName picks a unique session name under root. Names follow the
// session_YYYYMMDD_HHMMSS pattern; when two recordings start within the same
// second the later one gets a _2, _3, ... suffix.
func ResolveName(root string, now time.Time) string {
	base := "session_" + now.Format("20060102_150405")
	name := base
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(root, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
}
