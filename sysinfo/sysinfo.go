// Package sysinfo gathers a description of the host for the persisted
// document.
package sysinfo

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/zowe/perf-timing"
)

// Gather returns a snapshot of the host.
//
// Gathering is best-effort: every field that could be determined is filled
// in, and the returned error joins the failures for those that couldn't.
func Gather(ctx context.Context) (perftiming.SystemInformation, error) {
	info := perftiming.SystemInformation{
		Argv:     slices.Clone(os.Args),
		Platform: runtime.GOOS,
		Shell:    os.Getenv("SHELL"),
	}
	var errs []error
	if err := gatherOS(ctx, &info); err != nil {
		errs = append(errs, err)
	}
	if err := gatherNetwork(&info.Network); err != nil {
		errs = append(errs, err)
	}
	if m := &info.Memory; m.Total != 0 {
		m.Usage = m.Total - m.Free
		m.UsagePercentage = float64(m.Usage) / float64(m.Total) * 100
	}
	err := errors.Join(errs...)
	if err != nil {
		slog.DebugContext(ctx, "incomplete system information", "reason", err)
	}
	return info, err
}

func gatherNetwork(n *perftiming.Network) error {
	var errs []error
	h, err := os.Hostname()
	if err != nil {
		errs = append(errs, err)
	}
	n.Hostname = h

	ifs, err := net.Interfaces()
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	n.Interfaces = make(map[string][]perftiming.InterfaceAddress, len(ifs))
	for _, iface := range ifs {
		addrs, err := iface.Addrs()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mac := iface.HardwareAddr.String()
		if mac == "" {
			mac = "00:00:00:00:00:00"
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			fam := "IPv6"
			if ipn.IP.To4() != nil {
				fam = "IPv4"
			}
			n.Interfaces[iface.Name] = append(n.Interfaces[iface.Name], perftiming.InterfaceAddress{
				Address:  ipn.IP.String(),
				Netmask:  net.IP(ipn.Mask).String(),
				Family:   fam,
				MAC:      mac,
				Internal: iface.Flags&net.FlagLoopback != 0,
			})
		}
	}
	return errors.Join(errs...)
}

// OsString formats the OS description as "<type> <arch> <release>", leaving
// out empty parts.
func osString(kind, arch, release string) string {
	return strings.Join(slices.DeleteFunc([]string{kind, arch, release}, func(s string) bool { return s == "" }), " ")
}
