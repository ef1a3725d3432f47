package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rating is the pass/attention/fail outcome of a score.
type Rating struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var (
	RatingPass      = Rating{Code: "PASS", Label: "Aprovado"}
	RatingAttention = Rating{Code: "ATTENTION", Label: "Atenção"}
	RatingFail      = Rating{Code: "FAIL", Label: "Reprovado"}
)

// A rating rule. The expression sees `score` (0..100) and must return a bool.
type RatingRule struct {
	Expression string `yaml:"expression" json:"expression"`
	Code       string `yaml:"code" json:"code"`
	Label      string `yaml:"label" json:"label"`
}

func DefaultRatingRules() []RatingRule {
	return []RatingRule{
		{Expression: "score >= 90", Code: RatingPass.Code, Label: RatingPass.Label},
		{Expression: "score >= 70", Code: RatingAttention.Code, Label: RatingAttention.Label},
		{Expression: "true", Code: RatingFail.Code, Label: RatingFail.Label},
	}
}

type compiledRule struct {
	program *vm.Program
	rating  Rating
}

// Classifier evaluates rating rules in order; the first match wins.
type Classifier struct {
	rules []compiledRule
}

type ratingEnv struct {
	Score float64 `expr:"score"`
}

func NewClassifier(rules []RatingRule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, errors.New("at least one rating rule is required")
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		program, err := expr.Compile(r.Expression, expr.Env(ratingEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("rating rule %q: %w", r.Expression, err)
		}
		compiled = append(compiled, compiledRule{program: program, rating: Rating{Code: r.Code, Label: r.Label}})
	}

	return &Classifier{rules: compiled}, nil
}

// Classify returns the rating of the first rule that matches. Scores no rule
// matches get the last rule's rating.
func (c *Classifier) Classify(score float64) (Rating, error) {
	env := ratingEnv{Score: score}
	for _, r := range c.rules {
		output, err := expr.Run(r.program, env)
		if err != nil {
			return Rating{}, err
		}

		match, ok := output.(bool)
		if !ok {
			return Rating{}, errors.New("expression did not return a boolean")
		}

		if match {
			return r.rating, nil
		}
	}
	return c.rules[len(c.rules)-1].rating, nil
}

var (
	classifierMu sync.RWMutex
	classifier   = mustClassifier(DefaultRatingRules())
)

func mustClassifier(rules []RatingRule) *Classifier {
	c, err := NewClassifier(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// SetRatingRules replaces the rules used by Classify. Call it at startup.
func SetRatingRules(rules []RatingRule) error {
	c, err := NewClassifier(rules)
	if err != nil {
		return err
	}
	classifierMu.Lock()
	classifier = c
	classifierMu.Unlock()
	return nil
}

// Classify rates a score with the configured rules. A rule that fails at
// runtime falls back to the built-in thresholds.
func Classify(score float64) Rating {
	classifierMu.RLock()
	c := classifier
	classifierMu.RUnlock()

	if r, err := c.Classify(score); err == nil {
		return r
	}
	switch {
	case score >= 90:
		return RatingPass
	case score >= 70:
		return RatingAttention
	default:
		return RatingFail
	}
}
