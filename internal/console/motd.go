package console

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const barWidth = 60

// Report сведения о машине для приветствия консоли
type Report struct {
	SystemName    string
	KernelVersion string
	OSVersion     string
	HostName      string
	Processors    int
	MHz           float64
	UsedMemory    uint64
	TotalMemory   uint64
}

// ReportFunc собирает Report
type ReportFunc func() Report

// HostReport читает сведения о текущей машине. Недоступные поля
// заменяются значениями по умолчанию.
func HostReport() Report {
	r := Report{
		SystemName:    "Random system",
		KernelVersion: "Kernel alpha",
		OSVersion:     "1.0",
		HostName:      "localhost",
	}

	if info, err := host.Info(); err == nil {
		if info.OS != "" {
			r.SystemName = info.OS
		}
		if info.KernelVersion != "" {
			r.KernelVersion = info.KernelVersion
		}
		if info.PlatformVersion != "" {
			r.OSVersion = info.Platform + " " + info.PlatformVersion
		}
		if info.Hostname != "" {
			r.HostName = info.Hostname
		}
	}
	if n, err := cpu.Counts(true); err == nil {
		r.Processors = n
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		r.MHz = infos[0].Mhz
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.UsedMemory = vm.Used
		r.TotalMemory = vm.Total
	}
	return r
}

func (c *Console) motd(npcName string) string {
	r := c.opts.Report()

	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s's Console\n", npcName)
	b.WriteString("--------------------------\n")
	fmt.Fprintf(&b, "Username: %s\n\n", c.opts.PlayerName)

	fmt.Fprintf(&b, "System name:             %q\n", r.SystemName)
	fmt.Fprintf(&b, "System kernel version:   %q\n", r.KernelVersion)
	fmt.Fprintf(&b, "System OS version:       %q\n", r.OSVersion)
	fmt.Fprintf(&b, "System host name:        %q\n\n", r.HostName)

	fmt.Fprintf(&b, "Processors: %d at %.2fGHz\n", r.Processors, r.MHz/1000)
	fmt.Fprintf(&b, "RAM: %s\n", displayBar(barWidth, r.UsedMemory, r.TotalMemory))
	return b.String()
}

// displayBar рисует полосу заполнения шириной width вместе со скобками
func displayBar(width int, used, total uint64) string {
	inner := width - 2
	full := 0
	if total > 0 {
		full = int(float64(used) / float64(total) * float64(inner))
	}
	if full > inner {
		full = inner
	}

	return "[" + strings.Repeat("=", full) + strings.Repeat(" ", inner-full) + "] " +
		humanize.Bytes(used) + "/" + humanize.Bytes(total)
}
