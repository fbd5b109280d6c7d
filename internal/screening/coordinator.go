package screening

import (
	"fmt"
	"strings"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// Decision is the coordinator's output for one patient.
type Decision struct {
	BaseAction     model.Action
	Action         model.Action
	Rationale      []string
	Autonomy       model.AutonomyLevel
	SafetyOverride bool
	QuotaDowngrade bool
}

// PendingAdmission reports whether the decision still needs a quota slot.
func (d *Decision) PendingAdmission() bool {
	return d.Action == model.ActionAutoOrder
}

// Coordinator maps a risk score and safety flags to an action under a policy.
// It holds no state of its own; the only shared resource is the QuotaLimiter
// passed in by the caller.
type Coordinator struct {
	policy model.Policy
}

// NewCoordinator binds a coordinator to a policy. The policy must already have
// passed Policy.Validate; the coordinator does not check it again.
func NewCoordinator(policy model.Policy) *Coordinator {
	return &Coordinator{policy: policy}
}

// Policy returns the policy the coordinator decides under.
func (c *Coordinator) Policy() model.Policy {
	return c.policy
}

// Decide runs the full decision: threshold lookup, safety override, then
// quota admission for AUTO_ORDER.
func (c *Coordinator) Decide(score float64, flags []model.SafetyFlag, limiter *QuotaLimiter) Decision {
	d := c.Plan(score, flags)
	c.Admit(&d, limiter)
	return d
}

// Plan applies the threshold lookup and the safety override. A plan whose
// Action is AUTO_ORDER must go through Admit before it is final.
func (c *Coordinator) Plan(score float64, flags []model.SafetyFlag) Decision {
	base := c.BaseAction(score)
	d := Decision{
		BaseAction: base,
		Action:     base,
		Autonomy:   base.Autonomy(),
		Rationale:  []string{c.baseRationale(score, base)},
	}

	if len(flags) > 0 && d.Autonomy >= model.AutonomyDraftOrder {
		d.Rationale = append(d.Rationale, fmt.Sprintf(
			"Safety override: %d flag(s) detected [%s]. Downgrading from %s to %s.",
			len(flags), strings.Join(model.FlagCodes(flags), ", "), d.Action, model.ActionRecommendReview))
		d.Action = model.ActionRecommendReview
		d.Autonomy = model.AutonomyRecommendOnly
		d.SafetyOverride = true
	}
	return d
}

// Admit consumes a quota slot for an AUTO_ORDER plan, downgrading it to
// DRAFT_MRI_ORDER when the quota is exhausted. Other plans pass unchanged.
func (c *Coordinator) Admit(d *Decision, limiter *QuotaLimiter) {
	if !d.PendingAdmission() {
		return
	}
	quota := c.policy.MaxAutoActionsPerDay
	if limiter != nil && limiter.TryAcquire() {
		d.Rationale = append(d.Rationale, fmt.Sprintf(
			"Auto-action admitted within the daily cap (%d).", quota))
		return
	}
	d.Rationale = append(d.Rationale, fmt.Sprintf(
		"Daily auto-action cap (%d) reached. Downgrading from %s to %s.",
		quota, model.ActionAutoOrder, model.ActionDraftOrder))
	d.Action = model.ActionDraftOrder
	d.Autonomy = model.AutonomyDraftOrder
	d.QuotaDowngrade = true
}

// BaseAction looks the score up against the half-open threshold intervals.
// A score equal to a threshold falls into the higher bucket.
func (c *Coordinator) BaseAction(score float64) model.Action {
	p := c.policy
	switch {
	case score >= p.AutoThreshold:
		return model.ActionAutoOrder
	case score >= p.DraftThreshold:
		return model.ActionDraftOrder
	case score >= p.ReviewThreshold:
		return model.ActionRecommendReview
	default:
		return model.ActionNoAction
	}
}

func (c *Coordinator) baseRationale(score float64, action model.Action) string {
	p := c.policy
	switch action {
	case model.ActionAutoOrder:
		return fmt.Sprintf("Risk score %.3f meets the auto-order threshold (%.2f).", score, p.AutoThreshold)
	case model.ActionDraftOrder:
		return fmt.Sprintf("Risk score %.3f is between the draft-order threshold (%.2f) and the auto-order threshold (%.2f).",
			score, p.DraftThreshold, p.AutoThreshold)
	case model.ActionRecommendReview:
		return fmt.Sprintf("Risk score %.3f is between the review threshold (%.2f) and the draft-order threshold (%.2f).",
			score, p.ReviewThreshold, p.DraftThreshold)
	default:
		return fmt.Sprintf("Risk score %.3f is below the review threshold (%.2f).", score, p.ReviewThreshold)
	}
}
