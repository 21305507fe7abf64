package permissions

import (
	_ "embed"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

//go:embed actions.json
var actionsData []byte

// Condition narrows a rule beyond role and status. The closed set
// keeps payment and rating gating out of ad hoc view logic.
type Condition string

const (
	ConditionAlways      Condition = ""
	ConditionUnpaid      Condition = "unpaid"
	ConditionPaidUnrated Condition = "paid_unrated"
)

type Rule struct {
	Status  string    `json:"status"`
	Role    string    `json:"role"`
	Actions []string  `json:"actions"`
	When    Condition `json:"when"`
}

type RuleSet struct {
	Rules []Rule `json:"rules"`
}

func (r Rule) satisfied(paid, rated bool) bool {
	switch r.When {
	case ConditionAlways:
		return true
	case ConditionUnpaid:
		return !paid
	case ConditionPaidUnrated:
		return paid && !rated
	default:
		log.Warn().Str("condition", string(r.When)).Msg("Unknown action condition, denying")

		return false
	}
}

// AllowedActions returns the booking actions a user of the given role
// may request at the given status. The server still owns the
// transition; this only gates what the client offers.
func (r *RuleSet) AllowedActions(role, status string, paid, rated bool) []string {
	var actions []string

	for _, rule := range r.Rules {
		if rule.Role != role || rule.Status != status {
			continue
		}

		if rule.satisfied(paid, rated) {
			actions = append(actions, rule.Actions...)
		}
	}

	return actions
}

// Allowed reports whether one specific action is currently available.
func (r *RuleSet) Allowed(action, role, status string, paid, rated bool) bool {
	for _, allowed := range r.AllowedActions(role, status, paid, rated) {
		if allowed == action {
			return true
		}
	}

	return false
}

func Get() *RuleSet {
	var rules RuleSet

	err := json.Unmarshal(actionsData, &rules)
	if err != nil {
		log.Err(err).Msg("Failed to decode embedded action rules")

		return nil
	}

	log.Info().Int("rules", len(rules.Rules)).Msg("Successfully loaded embedded action rules")

	return &rules
}
