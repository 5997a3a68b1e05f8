package sysinfo

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/zowe/perf-timing/test"
)

func TestGather(t *testing.T) {
	ctx := test.Logging(t)
	info, err := Gather(ctx)
	if err != nil {
		// Containers commonly hide parts of the host; only log it.
		t.Log(err)
	}
	t.Logf("%+v", info)

	if got, want := info.Platform, runtime.GOOS; got != want {
		t.Errorf("platform: got %q, want %q", got, want)
	}
	if got, want := len(info.Argv), len(os.Args); got != want {
		t.Errorf("argv: got %d, want %d", got, want)
	}
	if info.OS == "" {
		t.Error("empty OS")
	}
	// Type and architecture are always present.
	if f := strings.Fields(info.OS); len(f) < 2 {
		t.Errorf("OS %q does not name the architecture", info.OS)
	}
	if m := info.Memory; m.Total != 0 {
		if m.Free > m.Total || m.Usage != m.Total-m.Free {
			t.Errorf("inconsistent memory: %+v", m)
		}
		if m.UsagePercentage < 0 || m.UsagePercentage > 100 {
			t.Errorf("usage percentage out of range: %v", m.UsagePercentage)
		}
	}
	for name, addrs := range info.Network.Interfaces {
		for _, a := range addrs {
			if a.Family != "IPv4" && a.Family != "IPv6" {
				t.Errorf("%s: unexpected family %q", name, a.Family)
			}
		}
	}
}

func TestOSString(t *testing.T) {
	tt := []struct {
		Kind, Arch, Release string
		Want                string
	}{
		{"Linux", "x86_64", "6.8.0-45-generic", "Linux x86_64 6.8.0-45-generic"},
		{"Linux", "amd64", "", "Linux amd64"},
		{"darwin", "arm64", "", "darwin arm64"},
	}
	for _, tc := range tt {
		if got := osString(tc.Kind, tc.Arch, tc.Release); got != tc.Want {
			t.Errorf("osString(%q, %q, %q): got %q, want %q", tc.Kind, tc.Arch, tc.Release, got, tc.Want)
		}
	}
}
