package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/scenario"
)

// timelineLimit caps the per-step rows printed in a report.
const timelineLimit = 100

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(24)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

	okStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
)

type row struct {
	label string
	value string
}

func box(rows []row) string {
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = labelStyle.Render(r.label) + r.value
	}
	return statsBoxStyle.Render(strings.Join(lines, "\n"))
}

type timelineRow struct {
	step, newly, total int
}

// renderResult prints the run summary and the first timelineLimit steps.
func renderResult(w io.Writer, title string, sc *scenario.Scenario, res *scenario.Result) error {
	var (
		summary  []row
		timeline []timelineRow
	)

	topo, err := res.Topology.Statistics(true)
	if err != nil {
		return err
	}
	netRows := []row{
		{"Topology", string(res.Topology.Kind())},
		{"Devices", fmt.Sprint(topo.Nodes)},
		{"Connections", fmt.Sprint(topo.Edges)},
		{"Density", fmt.Sprintf("%.4f", topo.Density)},
		{"Average degree", fmt.Sprintf("%.2f", topo.AvgDegree)},
	}

	malwareLine := fmt.Sprintf("%s (rate %.2f, latency %d)", sc.Malware.Kind, sc.Malware.InfectionRate, sc.Malware.Latency)
	switch {
	case res.Loop != nil:
		s := res.Loop
		summary = []row{
			{"Run", s.RunID},
			{"Engine", res.Engine},
			{"Malware", malwareLine},
			{"Total steps", fmt.Sprint(s.TotalSteps)},
			{"Total devices", fmt.Sprint(s.TotalDevices)},
			{"Total infected", fmt.Sprint(s.TotalInfected)},
			{"Infection percentage", fmt.Sprintf("%.2f%%", s.InfectionPercentage)},
			{"Peak new infections", fmt.Sprintf("%d (step %d)", s.Performance.PeakNewInfections, s.Performance.PeakStep)},
			{"Time to 50%", milestone(s.Performance.TimeTo50Percent)},
			{"Time to 90%", milestone(s.Performance.TimeTo90Percent)},
			{"Average velocity", fmt.Sprintf("%.2f devices/step", s.Performance.AverageVelocity)},
			{"Infected admin", fmt.Sprintf("%d / non-admin %d", s.InfectedAdmin, s.InfectedNonAdmin)},
		}
		for _, h := range s.History {
			timeline = append(timeline, timelineRow{h.Step, h.NewlyInfected, h.TotalInfected})
		}
	case res.Fast != nil:
		s := res.Fast
		summary = []row{
			{"Run", s.RunID},
			{"Engine", res.Engine},
			{"Malware", malwareLine},
			{"Total steps", fmt.Sprint(s.TotalSteps)},
			{"Total devices", fmt.Sprint(s.TotalDevices)},
			{"Total infected", fmt.Sprint(s.TotalInfected)},
			{"Infection percentage", fmt.Sprintf("%.2f%%", s.InfectionPercentage)},
			{"Peak new infections", fmt.Sprintf("%d (step %d)", s.PeakNewInfections, s.PeakStep)},
		}
		for _, h := range s.History {
			timeline = append(timeline, timelineRow{h.Step, h.NewlyInfected, h.TotalInfected})
		}
	}
	if res.ExportedTo != "" {
		summary = append(summary, row{"Snapshot", res.ExportedTo})
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(headerStyle.Render("Network") + "\n")
	b.WriteString(box(netRows) + "\n\n")
	b.WriteString(headerStyle.Render("Results") + "\n")
	b.WriteString(box(summary) + "\n\n")
	b.WriteString(headerStyle.Render("Infection timeline") + "\n")
	for i, t := range timeline {
		if i == timelineLimit {
			b.WriteString(dimStyle.Render(fmt.Sprintf("... (%d more steps)", len(timeline)-timelineLimit)) + "\n")
			break
		}
		fmt.Fprintf(&b, "  Step %3d: newly infected %6d, total infected %6d\n", t.step, t.newly, t.total)
	}
	if len(timeline) == 0 {
		b.WriteString(dimStyle.Render("  no steps run") + "\n")
	}

	_, err = io.WriteString(w, b.String())
	return err
}

// renderTopology prints topology statistics. Skipped measures show as n/a.
func renderTopology(w io.Writer, source string, kind network.Kind, s network.Statistics) error {
	rows := []row{
		{"Snapshot", source},
		{"Topology", string(kind)},
		{"Devices", fmt.Sprint(s.Nodes)},
		{"Connections", fmt.Sprint(s.Edges)},
		{"Density", fmt.Sprintf("%.4f", s.Density)},
		{"Average degree", fmt.Sprintf("%.2f", s.AvgDegree)},
		{"Max degree", fmt.Sprint(s.MaxDegree)},
		{"Admin ratio", fmt.Sprintf("%.2f", s.Demographics.AdminRatio)},
		{"Components", optional(s.Components, "%d")},
		{"Giant component", optional(s.GiantComponentSize, "%d")},
		{"Avg clustering", optional(s.AvgClustering, "%.4f")},
		{"Assortativity", optional(s.Assortativity, "%.4f")},
		{"Diameter", optional(s.Diameter, "%d")},
	}

	for _, label := range slices.Sorted(maps.Keys(s.Demographics.OSBreakdown)) {
		rows = append(rows, row{"OS " + label, fmt.Sprint(s.Demographics.OSBreakdown[label])})
	}

	_, err := io.WriteString(w, titleStyle.Render("Topology statistics")+"\n\n"+box(rows)+"\n")
	return err
}

func milestone(step *int) string {
	if step == nil {
		return "not reached"
	}
	return fmt.Sprintf("step %d", *step)
}

func optional[T any](v *T, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
