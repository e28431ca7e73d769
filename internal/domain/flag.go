package domain

import (
	"fmt"
	"time"
)

// Identity slot names recognized by the flag record builder. Descriptors map
// their columns onto these names; slots a source does not fill are null in
// the record.
const (
	IdentityContentID = "contentid"
	IdentityCommentID = "commentid"
	IdentityUserID    = "userid"
	IdentityMessageID = "messageid"
)

// FlagRecord is the normalized output produced when a content unit exceeds
// policy thresholds. Identifier fields are stringified-or-null; the field
// names mirror the reports table columns.
type FlagRecord struct {
	ContentID    *string   `json:"contentid"`
	CommentID    *string   `json:"commentid"`
	UserID       *string   `json:"userid"`
	ReportReason string    `json:"report_reason"`
	FlaggedAt    time.Time `json:"flagged_at"`
	MessageID    *string   `json:"messageid"`
	GroupID      *string   `json:"group_id"`
	Category     Category  `json:"type"`
	Severity     int       `json:"severity"`
}

// BuildFlag merges a content unit, the triggering attribute, and a severity
// bucket into a flag record. fieldLabel names the text that was scored (the
// source's content field, "username", "msg", or "senderName").
func BuildFlag(unit ContentUnit, fieldLabel string, attr Attribute, severity int, flaggedAt time.Time) FlagRecord {
	return FlagRecord{
		ContentID:    unit.Identity.Get(IdentityContentID).StringOrNil(),
		CommentID:    unit.Identity.Get(IdentityCommentID).StringOrNil(),
		UserID:       unit.Identity.Get(IdentityUserID).StringOrNil(),
		ReportReason: fmt.Sprintf("%s in %s", attr, fieldLabel),
		FlaggedAt:    flaggedAt,
		MessageID:    unit.Identity.Get(IdentityMessageID).StringOrNil(),
		GroupID:      unit.Group.StringOrNil(),
		Category:     unit.Category,
		Severity:     severity,
	}
}
