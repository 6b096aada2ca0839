package ai

import (
	"fmt"
	"strings"
)

const (
	defaultPartner1Name = "Partner 1"
	defaultPartner2Name = "Partner 2"
)

const mediationSystemPrompt = `You are an experienced relationship counselor and mediator. Two partners have each described the same conflict from their own point of view. Write a balanced mediation that helps them understand each other and move toward a resolution.

Your response should:
1. Acknowledge each perspective with empathy
2. Point out common ground and shared values
3. Suggest specific, practical steps toward resolution
4. Encourage healthy communication habits
5. Stay supportive and constructive

Write it as a single mediation that both partners can read together.`

// MediationPrompt embeds both partners' names and perspectives in the fixed
// mediation template. Blank names fall back to "Partner 1" and "Partner 2".
func MediationPrompt(partner1Name, partner1Perspective, partner2Name, partner2Perspective string) Prompt {
	var user strings.Builder
	fmt.Fprintf(&user, "Partner 1 (%s): %q\n\n", displayName(partner1Name, defaultPartner1Name), strings.TrimSpace(partner1Perspective))
	fmt.Fprintf(&user, "Partner 2 (%s): %q", displayName(partner2Name, defaultPartner2Name), strings.TrimSpace(partner2Perspective))
	return Prompt{
		System: mediationSystemPrompt,
		User:   user.String(),
	}
}

func displayName(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}
