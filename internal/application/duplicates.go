package application

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ericfisherdev/issuetriage/internal/domain/model"
)

// Similarity thresholds for duplicate detection.
const (
	titleOverlapThreshold = 0.6
	nearIdenticalJaccard  = 0.9
	bodyPrefixLength      = 300
	minBodyTokens         = 3
	strongLabelOverlap    = 0.5
	minSharedBodyTerms    = 3
	distinctiveTermLength = 4
	genericLabelWeight    = 0.25
	maxEvidenceTerms      = 10
)

var stopwords = setOf(
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "for", "with", "without",
	"is", "are", "was", "were", "be", "been", "it", "its", "this", "that", "these", "those",
	"from", "by", "at", "as", "into", "when", "while", "if", "then", "than", "not", "no",
	"can", "cannot", "cant", "does", "doesnt", "do", "dont", "should", "would", "could",
	"i", "we", "you", "my", "our", "your", "me", "us", "after", "before", "using", "use",
	"get", "gets", "have", "has", "had", "there", "some", "any", "all", "also", "so",
)

var genericLabels = setOf(
	"bug", "enhancement", "feature", "question", "documentation", "docs",
	"help wanted", "good first issue", "triage", "needs triage",
)

var issueReference = regexp.MustCompile(`#(\d+)\b`)

// DuplicateMatch pairs a newer issue with the older issue it duplicates.
type DuplicateMatch struct {
	Number      int
	Original    int
	Confidence  model.Confidence
	SharedTerms []string
	Score       float64
}

// issueProfile is the precomputed text features of one issue.
type issueProfile struct {
	issue      model.Issue
	title      map[string]bool
	titleNorm  string
	body       map[string]bool
	bodyNorm   string
	labels     map[string]bool
	references map[int]bool
}

func profile(issue model.Issue) issueProfile {
	titleTokens := tokenize(issue.Title)
	bodyPrefix := truncateRunes(issue.Body, bodyPrefixLength)
	bodyTokens := tokenize(bodyPrefix)

	labels := make(map[string]bool, len(issue.Labels))
	for _, l := range issue.Labels {
		labels[strings.ToLower(strings.TrimSpace(l))] = true
	}

	refs := map[int]bool{}
	for _, m := range issueReference.FindAllStringSubmatch(issue.Body, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			refs[n] = true
		}
	}

	return issueProfile{
		issue:      issue,
		title:      setOf(titleTokens...),
		titleNorm:  strings.Join(titleTokens, " "),
		body:       setOf(bodyTokens...),
		bodyNorm:   strings.Join(strings.Fields(strings.ToLower(bodyPrefix)), " "),
		labels:     labels,
		references: refs,
	}
}

// DetectDuplicates compares every pair of open issues and returns, for each
// issue flagged as a duplicate, its best match among lower-numbered issues.
// The lower-numbered issue of a pair is never flagged by that pair. Results
// are ordered by issue number.
func DetectDuplicates(issues []model.Issue) []DuplicateMatch {
	profiles := make([]issueProfile, 0, len(issues))
	for _, issue := range issues {
		if issue.IsOpen() {
			profiles = append(profiles, profile(issue))
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].issue.Number < profiles[j].issue.Number
	})

	var matches []DuplicateMatch
	for i := range profiles {
		newer := profiles[i]
		var best *DuplicateMatch
		for j := 0; j < i; j++ {
			m, ok := compare(newer, profiles[j])
			if !ok {
				continue
			}
			// Strictly greater keeps the lowest-numbered original on ties.
			if best == nil || m.Score > best.Score {
				best = &m
			}
		}
		if best != nil {
			matches = append(matches, *best)
		}
	}
	return matches
}

// compare scores newer against older and reports whether they are similar
// enough to flag.
func compare(newer, older issueProfile) (DuplicateMatch, bool) {
	titleScore := jaccard(newer.title, older.title)
	nearTitle := newer.titleNorm != "" &&
		(newer.titleNorm == older.titleNorm || titleScore >= nearIdenticalJaccard)
	nearBody := nearIdenticalBody(newer, older)

	if !(titleScore > titleOverlapThreshold || nearTitle || nearBody) {
		return DuplicateMatch{}, false
	}

	labelScore := weightedLabelOverlap(newer.labels, older.labels)
	bodyTerms := distinctive(intersect(newer.body, older.body))
	crossRef := newer.references[older.issue.Number] || older.references[newer.issue.Number]

	confidence := model.ConfidenceLow
	switch {
	case nearTitle || crossRef:
		confidence = model.ConfidenceHigh
	case labelScore >= strongLabelOverlap && len(bodyTerms) >= minSharedBodyTerms:
		confidence = model.ConfidenceMedium
	}

	score := titleScore + 0.5*labelScore
	if nearBody {
		score += 0.5
	}
	if crossRef {
		score += 1
	}

	shared := append(intersect(newer.title, older.title), bodyTerms...)
	return DuplicateMatch{
		Number:      newer.issue.Number,
		Original:    older.issue.Number,
		Confidence:  confidence,
		SharedTerms: limitTerms(shared),
		Score:       score,
	}, true
}

func nearIdenticalBody(a, b issueProfile) bool {
	if len(a.body) < minBodyTokens || len(b.body) < minBodyTokens {
		return false
	}
	return a.bodyNorm == b.bodyNorm || jaccard(a.body, b.body) >= nearIdenticalJaccard
}

// DuplicateFinding builds the finding recorded for a flagged issue.
func DuplicateFinding(issue model.Issue, m DuplicateMatch) model.Finding {
	return model.Finding{
		Number:     issue.Number,
		Title:      issue.Title,
		Verdict:    model.VerdictDuplicate,
		Confidence: m.Confidence,
		Summary:    fmt.Sprintf("Likely duplicate of #%d.", m.Original),
		Evidence: []model.Evidence{{
			Kind:    model.EvidenceKindDuplicate,
			Ref:     fmt.Sprintf("#%d", m.Original),
			Message: "shared terms: " + strings.Join(m.SharedTerms, ", "),
		}},
		ProposedComment: duplicateComment(m.Original),
		ProposedAction:  model.ProposedActionClose,
	}
}

func duplicateComment(original int) string {
	return fmt.Sprintf(
		"This looks like a duplicate of #%d. Closing in favor of #%d; please follow that issue for updates and reopen if this is a different problem.",
		original, original,
	)
}

// tokenize lowercases s, splits on anything that is not a letter or digit and
// drops stopwords. Apostrophes are removed first so "doesn't" becomes "doesnt".
func tokenize(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "'", "")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func weightedLabelOverlap(a, b map[string]bool) float64 {
	weight := func(l string) float64 {
		if genericLabels[l] {
			return genericLabelWeight
		}
		return 1
	}
	var inter, union float64
	for l := range a {
		union += weight(l)
		if b[l] {
			inter += weight(l)
		}
	}
	for l := range b {
		if !a[l] {
			union += weight(l)
		}
	}
	if union == 0 {
		return 0
	}
	return inter / union
}

// intersect returns the sorted common keys.
func intersect(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func distinctive(terms []string) []string {
	var out []string
	for _, t := range terms {
		if len([]rune(t)) >= distinctiveTermLength {
			out = append(out, t)
		}
	}
	return out
}

func limitTerms(terms []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxEvidenceTerms {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
