package ledger

import "time"

func (f Filter) match(userID, status string) bool {
	if f.UserID != "" && f.UserID != userID {
		return false
	}
	if f.Status != "" && f.Status != status {
		return false
	}
	return true
}

func (f Filter) inRange(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Before(f.To) {
		return false
	}
	return true
}
