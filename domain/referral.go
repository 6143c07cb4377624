package domain

import (
	"errors"
	"fmt"
	"time"
)

// ReferralStatus is the lifecycle state of a referral.
type ReferralStatus string

const (
	ReferralPending    ReferralStatus = "pending"
	ReferralSent       ReferralStatus = "sent"
	ReferralAccepted   ReferralStatus = "accepted"
	ReferralInProgress ReferralStatus = "in_progress"
	ReferralResolved   ReferralStatus = "resolved"
	ReferralClosed     ReferralStatus = "closed"
	ReferralDeclined   ReferralStatus = "declined"
)

// statusPath is the forward sequence of referral states. declined is a
// terminal side branch reachable from any pre-resolution state via Decline.
var statusPath = []ReferralStatus{
	ReferralPending,
	ReferralSent,
	ReferralAccepted,
	ReferralInProgress,
	ReferralResolved,
	ReferralClosed,
}

var (
	// ErrReferralClosed is returned when advancing a referral that already reached closed.
	ErrReferralClosed = errors.New("referral is already closed")
	// ErrReferralDeclined is returned when advancing a declined referral.
	ErrReferralDeclined = errors.New("declined referrals cannot advance")
	// ErrReferralTerminal is returned when appending follow-ups to a resolved or closed referral.
	ErrReferralTerminal = errors.New("referral is resolved or closed, no further follow-ups allowed")
)

// Terminal reports whether the referral accepts no further follow-up entries.
func (r *Referral) Terminal() bool {
	return r.Status == ReferralResolved || r.Status == ReferralClosed
}

// AdvanceStatus moves the referral exactly one step forward along the main
// sequence and stamps UpdatedDate. Advancing a closed referral is an error,
// not a silent no-op. Reaching closed sets ClosedDate if not already set.
func (r *Referral) AdvanceStatus(now time.Time) error {
	switch r.Status {
	case ReferralClosed:
		return ErrReferralClosed
	case ReferralDeclined:
		return ErrReferralDeclined
	}
	idx := statusIndex(r.Status)
	if idx < 0 {
		return fmt.Errorf("unknown referral status: %s", r.Status)
	}
	r.Status = statusPath[idx+1]
	r.UpdatedDate = now
	if r.Status == ReferralClosed && r.ClosedDate == nil {
		r.ClosedDate = &now
	}
	return nil
}

// Decline marks the referral declined. Only pre-resolution states may decline.
func (r *Referral) Decline(now time.Time) error {
	if r.Terminal() || r.Status == ReferralDeclined {
		return fmt.Errorf("referral in status %s cannot be declined", r.Status)
	}
	r.Status = ReferralDeclined
	r.UpdatedDate = now
	return nil
}

// AddFollowUp appends a follow-up entry and stamps UpdatedDate. Resolved and
// closed referrals reject new follow-ups.
func (r *Referral) AddFollowUp(followUp FollowUp, now time.Time) error {
	if r.Terminal() {
		return ErrReferralTerminal
	}
	r.FollowUps = append(r.FollowUps, followUp)
	r.UpdatedDate = now
	return nil
}

func statusIndex(status ReferralStatus) int {
	for i, s := range statusPath {
		if s == status {
			return i
		}
	}
	return -1
}
