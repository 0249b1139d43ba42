package internal

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"DepScanner/internal/scanner"
)

// globSet matches a candidate's root-relative path or base name.
type globSet []string

func (g globSet) Match(c scanner.Candidate) bool {
	if len(g) == 0 {
		return false
	}
	rel := c.RelPath()
	for _, p := range g {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, c.Name); ok {
			return true
		}
	}
	return false
}

// interestFunc is the per-file PathMatcher used by the walker.
type interestFunc func(c scanner.Candidate) (InterestSet, int, error)

// newInterestFunc returns the glob override when globs are set, otherwise
// asks every scanner.
func newInterestFunc(scanners []scanner.Scanner, globs []string) interestFunc {
	if len(globs) > 0 {
		all := allInterest(len(scanners))
		set := globSet(globs)
		return func(c scanner.Candidate) (InterestSet, int, error) {
			if set.Match(c) {
				return all, -1, nil
			}
			return noInterest, -1, nil
		}
	}
	build := newInterestBuilder(len(scanners))
	return func(c scanner.Candidate) (InterestSet, int, error) {
		return build(scanners, c)
	}
}

// Rule declares a RuleScanner in a rules file:
//
//	[[rule]]
//	name = "npm"
//	type = "npm"
//	files = ["package.json"]
//	pattern = '"(?P<name>[^"]+)"\s*:\s*"(?P<version>[~^]?\d[^"]*)"'
//	updatable = true
type Rule struct {
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	Files     []string `toml:"files"`
	Pattern   string   `toml:"pattern"`
	Updatable bool     `toml:"updatable"`
}

type rulesFile struct {
	Rules []Rule `toml:"rule"`
}

// RuleScanner reports every line match of a regular expression with
// "name" and "version" groups in files selected by globs.
type RuleScanner struct {
	name      string
	depType   string
	files     globSet
	re        *regexp.Regexp
	nameIdx   int
	verIdx    int
	updatable bool
}

// NewRuleScanner compiles r.
func NewRuleScanner(r Rule) (*RuleScanner, error) {
	if r.Name == "" {
		return nil, errors.New("rule without name")
	}
	if len(r.Files) == 0 {
		return nil, fmt.Errorf("rule %q: no files", r.Name)
	}
	for _, f := range r.Files {
		if !doublestar.ValidatePattern(f) {
			return nil, fmt.Errorf("rule %q: invalid glob %q", r.Name, f)
		}
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %q: invalid regex: %w", r.Name, err)
	}
	s := &RuleScanner{
		name:      r.Name,
		depType:   r.Type,
		files:     globSet(r.Files),
		re:        re,
		nameIdx:   re.SubexpIndex("name"),
		verIdx:    re.SubexpIndex("version"),
		updatable: r.Updatable,
	}
	if s.nameIdx < 0 || s.verIdx < 0 {
		return nil, fmt.Errorf("rule %q: pattern needs (?P<name>...) and (?P<version>...) groups", r.Name)
	}
	if s.depType == "" {
		s.depType = r.Name
	}
	return s, nil
}

func (s *RuleScanner) Name() string { return s.name }

func (s *RuleScanner) ShouldScan(c scanner.Candidate) (bool, error) {
	return s.files.Match(c), nil
}

// LoadRules reads a TOML rules file.
func LoadRules(path string) ([]scanner.Scanner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf rulesFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	out := make([]scanner.Scanner, 0, len(rf.Rules))
	for _, r := range rf.Rules {
		s, err := NewRuleScanner(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	logrus.Debugf("Loaded %d rules", len(out))
	return out, nil
}
