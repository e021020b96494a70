package analyzer

import (
	"fmt"
	"strings"

	"feedbacktriage/internal/config"
	"feedbacktriage/internal/models"
)

var defaultUrgencyRules = map[string]string{
	models.UrgencyHigh:   "threatens cancellation, inability to access paid service, or financial loss.",
	models.UrgencyMedium: "functional issues without immediate loss.",
	models.UrgencyLow:    "feature requests, praise, or informational queries.",
}

const outputShape = `You are a precise customer support analyst. Given an input message, produce JSON that exactly matches the schema:
{
  "sentiment": one of "positive","neutral","negative",
  "urgency_level": one of "low","medium","high",
  "category": a single-word or short phrase like "billing","technical","product","account","shipping",
  "summary": one concise sentence summarizing the customer's issue,
  "recommended_action": an action the support team should take (brief).
}
Be concise, avoid additional keys, and return only JSON matching the schema. If uncertain about customer identity, don't guess; focus on the message text only.`

// retryReminder is appended to the instruction after an unusable reply.
const retryReminder = `

Your previous reply could not be used. Respond with a single JSON object only, no prose and no code fences, using exactly the five keys above with the allowed values.`

// BuildInstruction renders the classifier instruction for cfg.
func BuildInstruction(cfg config.PromptConfig) string {
	var b strings.Builder
	b.WriteString(outputShape)

	b.WriteString("\n\nFor urgency classification:\n")
	for _, level := range []string{models.UrgencyHigh, models.UrgencyMedium, models.UrgencyLow} {
		rule := defaultUrgencyRules[level]
		if custom, ok := cfg.UrgencyRules[level]; ok && strings.TrimSpace(custom) != "" {
			rule = strings.TrimSpace(custom)
		}
		fmt.Fprintf(&b, "- %s: %s\n", level, rule)
	}

	words := cfg.BiasWords
	if len(words) == 0 {
		words = config.DefaultBiasWords
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	fmt.Fprintf(&b, "\nPay special attention to these bias words which often indicate urgency: %s", strings.Join(quoted, ", "))

	return b.String()
}
