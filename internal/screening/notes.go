package screening

import (
	"sort"
	"strings"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// SupportiveTerms are phrases in a clinical note that point toward MS.
var SupportiveTerms = []string{
	"demyelinating",
	"periventricular lesions",
	"oligoclonal bands",
	"optic neuritis",
	"relapsing symptoms",
	"neurology referral",
	"MRI brain w/wo contrast",
}

// CountervailingTerms are phrases that point toward a non-MS explanation.
var CountervailingTerms = []string{
	"tension headache",
	"vitamin deficiency",
	"stress-related",
	"poor sleep",
	"peripheral neuropathy",
	"viral illness",
	"benign positional vertigo",
}

// Excerpt window around the first supportive match.
const (
	excerptBefore = 60
	excerptAfter  = 140
	ellipsis      = "..."
)

// AnalyzeNote scans free text for supportive and countervailing phrases.
// Matching is case-insensitive phrase containment. Matched terms are ordered
// by where they first occur in the note.
func AnalyzeNote(text string) model.NoteAnalysis {
	analysis := model.NoteAnalysis{
		SupportiveTerms:     []string{},
		CountervailingTerms: []string{},
	}
	if strings.TrimSpace(text) == "" {
		return analysis
	}

	lower := strings.ToLower(text)
	supportive, firstPos := findTerms(lower, SupportiveTerms)
	countervailing, _ := findTerms(lower, CountervailingTerms)

	analysis.SupportiveTerms = supportive
	analysis.CountervailingTerms = countervailing
	analysis.SupportiveFound = len(supportive) > 0
	analysis.CountervailingFound = len(countervailing) > 0
	if firstPos >= 0 {
		analysis.Excerpt = excerpt(text, lower, firstPos)
	}
	return analysis
}

type termHit struct {
	term string
	pos  int
}

// findTerms returns matched terms by first occurrence and the earliest byte
// offset in lower, or -1 when nothing matched.
func findTerms(lower string, terms []string) ([]string, int) {
	hits := make([]termHit, 0, len(terms))
	for _, term := range terms {
		if pos := strings.Index(lower, strings.ToLower(term)); pos >= 0 {
			hits = append(hits, termHit{term: term, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.term
	}
	if len(hits) == 0 {
		return out, -1
	}
	return out, hits[0].pos
}

// excerpt cuts a window of the original text around pos. Offsets are computed
// on the lowered copy, which can differ in byte length for some scripts, so
// the window is mapped back through runes.
func excerpt(text, lower string, pos int) string {
	runes := []rune(text)
	runePos := len([]rune(lower[:pos]))
	if runePos > len(runes) {
		runePos = len(runes)
	}

	start := runePos - excerptBefore
	if start < 0 {
		start = 0
	}
	end := runePos + excerptAfter
	if end > len(runes) {
		end = len(runes)
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}

// noteMentionsMS is the MS-terminology signal shared by the filter gate and
// the scorer: the upstream flag or a supportive phrase in the note.
func noteMentionsMS(p *model.PatientRecord) bool {
	if p.NoteHasMSTerms {
		return true
	}
	_, pos := findTerms(strings.ToLower(p.Note), SupportiveTerms)
	return pos >= 0
}
