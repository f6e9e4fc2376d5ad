package tzdb

import (
	"os"
	"strings"
	"time"

	"github.com/thlib/go-timezone-local/tzlocal"
)

// hostTZ reads the host zone setting; replaced in tests.
var hostTZ = tzlocal.LocalTZ

// LocalZoneName reports the IANA name of the host's local timezone.
// $TZ wins when it names a loadable zone, matching the Go runtime; otherwise
// the host setting is used (/etc/localtime on Unix, the registry on Windows).
// Falls back to "UTC".
func LocalZoneName() string {
	if name, ok := os.LookupEnv("TZ"); ok {
		name = strings.TrimPrefix(name, ":")
		if name == "" {
			return "UTC"
		}
		if valid(name) {
			return name
		}
	}

	if name, err := hostTZ(); err == nil && valid(name) {
		return name
	}
	return "UTC"
}

func valid(name string) bool {
	loc, err := time.LoadLocation(name)
	return err == nil && loc != time.Local
}
