package tzdb

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubHostTZ(t *testing.T, fn func() (string, error)) {
	t.Helper()
	prev := hostTZ
	hostTZ = fn
	t.Cleanup(func() { hostTZ = prev })
}

func zone(name string) func() (string, error) {
	return func() (string, error) { return name, nil }
}

func failing() (string, error) { return "", errors.New("no zone configured") }

func TestLocalZoneName(t *testing.T) {
	tests := []struct {
		name string
		tz   *string
		host func() (string, error)
		want string
	}{
		{name: "TZ wins", tz: ptr("America/Denver"), host: zone("Europe/Berlin"), want: "America/Denver"},
		{name: "leading colon stripped", tz: ptr(":Asia/Tokyo"), host: failing, want: "Asia/Tokyo"},
		{name: "empty TZ means UTC", tz: ptr(""), host: zone("Europe/Berlin"), want: "UTC"},
		{name: "unloadable TZ falls through to host", tz: ptr("Not/AZone"), host: zone("Pacific/Auckland"), want: "Pacific/Auckland"},
		{name: "host zone", host: zone("Europe/London"), want: "Europe/London"},
		{name: "host lookup fails", host: failing, want: "UTC"},
		{name: "unloadable host zone", host: zone("Mars/Olympus_Mons"), want: "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tz != nil {
				t.Setenv("TZ", *tt.tz)
			} else {
				t.Setenv("TZ", "")
				os.Unsetenv("TZ")
			}
			stubHostTZ(t, tt.host)

			assert.Equal(t, tt.want, LocalZoneName())
		})
	}
}

func ptr(s string) *string { return &s }
