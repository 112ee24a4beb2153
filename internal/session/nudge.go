package session

import (
	"time"

	"github.com/mealsync/api/internal/model"
)

// Meeting schedule presets for the lunch nudge.
const (
	MeetingNone       = "No meeting"
	MeetingBackToBack = "Back-to-back"
)

// NudgeInterval is the minimum time between two lunch nudges.
const NudgeInterval = 6 * time.Hour

// NudgeDue reports whether the lunch nudge should be shown to user given the
// meeting schedule. It is never due without a meeting.
func NudgeDue(user *model.User, meeting string, now time.Time) bool {
	if user == nil || meeting == "" || meeting == MeetingNone {
		return false
	}
	if user.LastNudgeShown == nil {
		return true
	}
	return user.LastNudgeShown.Before(now.Add(-NudgeInterval))
}

// NudgeMessage is the nudge text for meeting.
func NudgeMessage(meeting string) string {
	if meeting == MeetingBackToBack {
		return "Tight schedule detected. Grab a quick bite!"
	}
	return "Upcoming meeting at 12:30. Suggested lunch time: 12:00."
}
