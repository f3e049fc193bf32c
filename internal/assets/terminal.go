package assets

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Confidence levels assigned by Validate.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

var tcnPattern = regexp.MustCompile(`^\d{2}-\d{7}$`)

// Candidate is a terminal as reported by a discovery source.
type Candidate struct {
	Name        string   `json:"name"`
	Operator    string   `json:"operator"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	TCN         string   `json:"tcn"`
	FullAddress string   `json:"full_address"`
	Confidence  string   `json:"confidence,omitempty"`
	Issues      []string `json:"validation_issues,omitempty"`
}

// Validate records the candidate's issues and confidence level in place.
// No issues is high confidence, one or two is medium, more is low.
func Validate(c *Candidate) {
	issues := []string{}
	if !tcnPattern.MatchString(c.TCN) {
		issues = append(issues, "Invalid TCN format")
	}
	for _, f := range []struct{ name, val string }{{"name", c.Name}, {"state", c.State}, {"tcn", c.TCN}} {
		if f.val == "" {
			issues = append(issues, "Missing "+f.name)
		}
	}
	if !validState(c.State) {
		issues = append(issues, "Invalid state code")
	}

	c.Issues = issues
	switch {
	case len(issues) == 0:
		c.Confidence = ConfidenceHigh
	case len(issues) <= 2:
		c.Confidence = ConfidenceMedium
	default:
		c.Confidence = ConfidenceLow
	}
}

func validState(s string) bool {
	if utf8.RuneCountInString(s) != 2 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// QualityScore rates a validated candidate between 0 and 1.
func QualityScore(c *Candidate) float64 {
	score := 1.0
	if c.Operator == "" {
		score -= 0.1
	}
	if c.City == "" {
		score -= 0.1
	}
	if c.FullAddress == "" {
		score -= 0.05
	}
	score -= float64(len(c.Issues)) * 0.15
	if score < 0 {
		return 0
	}
	return math.Round(score*1e4) / 1e4
}

// TerminalID derives a stable id from state and TCN: the state code followed
// by four digits taken from the MD5 of the TCN.
func TerminalID(state, tcn string) string {
	if state == "" {
		state = "XX"
	}
	sum := md5.Sum([]byte(tcn))
	n, _ := strconv.ParseUint(hex.EncodeToString(sum[:2]), 16, 32)
	return fmt.Sprintf("%s%04d", state, n%10000)
}

// changed reports whether the candidate differs from the stored terminal in
// any tracked field.
func changed(c *Candidate, t *Terminal) bool {
	return c.Name != t.TerminalName || c.Operator != t.Operator || c.City != t.City || c.State != t.State
}
