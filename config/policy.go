package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ifscore/triggers"
)

// policyFile mirrors triggers.Policy with optional fields so a deployment can
// override individual thresholds while inheriting the documented defaults for
// the rest.
type policyFile struct {
	SanctionScoreThreshold   *int  `yaml:"sanctionScoreThreshold"`
	SanctionStreakDays       *int  `yaml:"sanctionStreakDays"`
	ReviewScoreThreshold     *int  `yaml:"reviewScoreThreshold"`
	ReviewWindowDays         *int  `yaml:"reviewWindowDays"`
	ReviewDayCount           *int  `yaml:"reviewDayCount"`
	GraduationScoreThreshold *int  `yaml:"graduationScoreThreshold"`
	GraduationStreakDays     *int  `yaml:"graduationStreakDays"`
	CountFutureDays          *bool `yaml:"countFutureDays"`
}

func (f policyFile) apply(p *triggers.Policy) {
	if f.SanctionScoreThreshold != nil {
		p.SanctionScoreThreshold = *f.SanctionScoreThreshold
	}
	if f.SanctionStreakDays != nil {
		p.SanctionStreakDays = *f.SanctionStreakDays
	}
	if f.ReviewScoreThreshold != nil {
		p.ReviewScoreThreshold = *f.ReviewScoreThreshold
	}
	if f.ReviewWindowDays != nil {
		p.ReviewWindowDays = *f.ReviewWindowDays
	}
	if f.ReviewDayCount != nil {
		p.ReviewDayCount = *f.ReviewDayCount
	}
	if f.GraduationScoreThreshold != nil {
		p.GraduationScoreThreshold = *f.GraduationScoreThreshold
	}
	if f.GraduationStreakDays != nil {
		p.GraduationStreakDays = *f.GraduationStreakDays
	}
	if f.CountFutureDays != nil {
		p.CountFutureDays = *f.CountFutureDays
	}
}

// LoadPolicy resolves the trigger policy for this deployment. When path is
// empty the documented defaults apply unchanged; otherwise the YAML file at
// path overrides the fields it sets. The merged policy must validate.
func LoadPolicy(path string) (triggers.Policy, error) {
	policy := triggers.DefaultPolicy()
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return policy, nil
	}

	contents, err := os.ReadFile(trimmed)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}
	var override policyFile
	if err := yaml.Unmarshal(contents, &override); err != nil {
		return policy, fmt.Errorf("decode policy file: %w", err)
	}
	override.apply(&policy)
	if err := policy.Validate(); err != nil {
		return policy, fmt.Errorf("policy file %s: %w", trimmed, err)
	}
	return policy, nil
}
