package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/analytics"
	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// FormatRatio renders an optional ratio, or "n/a" when it is undefined.
func FormatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderPolicies writes a policy table. The active policy is marked.
func RenderPolicies(w io.Writer, policies []model.Policy) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ACTIVE\tNAME\tREVIEW\tDRAFT\tAUTO\tMAX AUTO\tCREATED BY\tID")
	for _, p := range policies {
		active := ""
		if p.Active {
			active = SuccessIcon
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%d\t%s\t%s\n",
			active, p.Name, p.ReviewThreshold, p.DraftThreshold, p.AutoThreshold,
			p.MaxAutoActionsPerDay, p.CreatedBy, p.ID)
	}
	return tw.Flush()
}

// RenderRunList writes one line per run.
func RenderRunList(w io.Writer, runs []model.RunResult) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATUS\tPOLICY\tPATIENTS\tCANDIDATES\tFLAGGED\tAUTO\tPRECISION\tRECALL\tCREATED")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.Status, r.Policy.Name, r.TotalPatients, r.CandidatesFound,
			r.FlaggedCount, r.Actions.AutoOrder, FormatRatio(r.Precision),
			FormatRatio(r.Recall), r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// RenderRun writes the summary of one run.
func RenderRun(w io.Writer, run *model.RunResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Status:      %s\n", StyleStatus(run.Status))
	fmt.Fprintf(&b, "Policy:      %s\n", run.Policy.String())
	if run.PolicyHash != "" {
		fmt.Fprintf(&b, "Policy hash: %s\n", SubtleStyle.Render(run.PolicyHash))
	}
	fmt.Fprintf(&b, "Patients:    %d (candidates %d, failures %d)\n",
		run.TotalPatients, run.CandidatesFound, len(run.Failures))
	fmt.Fprintf(&b, "Gates:       lesions=%d note_terms=%d symptoms>=2=%d visits>=6=%d\n",
		run.Gates.LesionsPresent, run.Gates.NoteMSTerms, run.Gates.MinSymptoms, run.Gates.MinVisits)
	fmt.Fprintf(&b, "Actions:     %s=%d %s=%d %s=%d %s=%d\n",
		StyleAction(model.ActionNoAction), run.Actions.NoAction,
		StyleAction(model.ActionRecommendReview), run.Actions.RecommendReview,
		StyleAction(model.ActionDraftOrder), run.Actions.DraftOrder,
		StyleAction(model.ActionAutoOrder), run.Actions.AutoOrder)
	fmt.Fprintf(&b, "Quality:     precision=%s recall=%s f1=%s safety_flag_rate=%s\n",
		FormatRatio(run.Precision), FormatRatio(run.Recall), FormatRatio(run.F1),
		FormatRatio(run.SafetyFlagRate))
	if run.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", run.Duration)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error:       %s\n", ErrorStyle.Render(run.ErrorMessage))
	}

	if _, err := fmt.Fprintln(w, RenderBox("Run "+run.ID, strings.TrimRight(b.String(), "\n"))); err != nil {
		return err
	}

	if len(run.Failures) == 0 {
		return nil
	}
	fmt.Fprintln(w, FormatWarning(fmt.Sprintf("%d patients could not be evaluated:", len(run.Failures))))
	tw := newTable(w)
	for _, f := range run.Failures {
		fmt.Fprintf(tw, "  %s\t%s\n", f.PatientID, f.Reason)
	}
	return tw.Flush()
}

// RenderAssessments writes one line per assessment with its top features.
func RenderAssessments(w io.Writer, assessments []model.RiskAssessment) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PATIENT\tSCORE\tACTION\tFLAGS\tTOP FEATURES")
	for i := range assessments {
		a := &assessments[i]
		top := a.Contributions.Top(3)
		features := make([]string, len(top))
		for j, c := range top {
			features[j] = fmt.Sprintf("%s(+%.2f)", c.Feature, c.Value)
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\t%s\n",
			a.PatientID, a.RiskScore, a.Action,
			strings.Join(model.FlagCodes(a.Flags), ","), strings.Join(features, " "))
	}
	return tw.Flush()
}

// RenderMetrics writes a metrics report.
func RenderMetrics(w io.Writer, r *analytics.MetricsReport) error {
	fmt.Fprintln(w, FormatTitle("Screening quality"))
	fmt.Fprintf(w, "Assessed %d, flagged %d\n", r.Total, r.Flagged)
	fmt.Fprintf(w, "Precision %s  Recall %s  F1 %s  Safety flag rate %s\n",
		FormatRatio(r.Precision), FormatRatio(r.Recall), FormatRatio(r.F1), FormatRatio(r.SafetyFlagRate))
	fmt.Fprintf(w, "Confusion TP=%d FP=%d TN=%d FN=%d\n\n",
		r.Confusion.TP, r.Confusion.FP, r.Confusion.TN, r.Confusion.FN)

	d := r.Distribution
	fmt.Fprintln(w, BoldStyle.Render("Risk score distribution"))
	fmt.Fprintf(w, "n=%d mean=%.3f median=%.3f std=%.3f min=%.3f q25=%.3f q75=%.3f max=%.3f\n",
		d.Count, d.Mean, d.Median, d.Std, d.Min, d.Q25, d.Q75, d.Max)
	tw := newTable(w)
	for _, bin := range d.Histogram {
		fmt.Fprintf(tw, "  [%.2f, %.2f)\t%d\t%s\n", bin.Lower, bin.Upper, bin.Count, bar(bin.Count, d.Count))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Calibration) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, BoldStyle.Render("Calibration"))
		tw = newTable(w)
		fmt.Fprintln(tw, "  BIN\tN\tPREDICTED\tOBSERVED")
		for _, c := range r.Calibration {
			fmt.Fprintf(tw, "  [%.1f, %.1f)\t%d\t%.3f\t%.3f\n", c.Lower, c.Upper, c.Count, c.MeanPredicted, c.MeanObserved)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, BoldStyle.Render("Autonomy"))
	tw = newTable(w)
	for _, lc := range r.Autonomy {
		fmt.Fprintf(tw, "  %s\t%d\n", lc.Level, lc.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.FlagCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, BoldStyle.Render("Safety flags"))
		codes := make([]string, 0, len(r.FlagCounts))
		for code := range r.FlagCounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		tw = newTable(w)
		for _, code := range codes {
			fmt.Fprintf(tw, "  %s\t%d\n", code, r.FlagCounts[code])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, dim := range analytics.Dimensions {
		groups, ok := r.Fairness[dim]
		if !ok {
			continue
		}
		fmt.Fprintln(w)
		if err := RenderSubgroups(w, dim, groups); err != nil {
			return err
		}
	}
	return nil
}

// RenderSubgroups writes one subgroup table.
func RenderSubgroups(w io.Writer, dim analytics.Dimension, groups []analytics.SubgroupStats) error {
	fmt.Fprintln(w, BoldStyle.Render("Subgroups by "+string(dim)))
	tw := newTable(w)
	fmt.Fprintln(tw, "  GROUP\tN\tFLAGGED\tAVG RISK\tDRAFT/AUTO\tAUTO\tSAFETY\tAT RISK\tMRI")
	for _, g := range groups {
		fmt.Fprintf(tw, "  %s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			g.Group, g.N, g.FlaggedRate, g.MeanRisk, g.DraftOrAutoRate, g.AutoRate,
			g.SafetyFlagRate, g.PositiveRate, g.ImagingRate)
	}
	return tw.Flush()
}

// RenderSimulation writes a what-if result. With showChanged, every decision
// that differs from the original run is listed.
func RenderSimulation(w io.Writer, res *analytics.SimulationResult, showChanged bool) error {
	fmt.Fprintln(w, FormatTitle("What-if: "+res.Policy.String()))
	fmt.Fprintf(w, "Cases %d, changed %d\n", res.Total, res.Changed)
	fmt.Fprintf(w, "Actions %s=%d %s=%d %s=%d %s=%d\n",
		StyleAction(model.ActionNoAction), res.Actions.NoAction,
		StyleAction(model.ActionRecommendReview), res.Actions.RecommendReview,
		StyleAction(model.ActionDraftOrder), res.Actions.DraftOrder,
		StyleAction(model.ActionAutoOrder), res.Actions.AutoOrder)
	fmt.Fprintf(w, "Precision %s  Recall %s  F1 %s\n",
		FormatRatio(res.Precision), FormatRatio(res.Recall), FormatRatio(res.F1))

	if !showChanged || res.Changed == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := newTable(w)
	fmt.Fprintln(tw, "PATIENT\tSCORE\tORIGINAL\tSIMULATED")
	for _, d := range res.Decisions {
		if !d.Changed {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\n", d.PatientID, d.RiskScore, d.OriginalAction, d.Action)
	}
	return tw.Flush()
}

// bar draws a proportional bar of at most 40 cells.
func bar(count, total int) string {
	if total == 0 || count == 0 {
		return ""
	}
	n := count * 40 / total
	if n == 0 {
		n = 1
	}
	return ProgressStyle.Render(strings.Repeat("█", n))
}
