package service

import "time"

// ApprovalLogicAgeMonths returns the whole calendar months between approvalDate and now.
// A month only counts once now has reached the approval day-of-month. Future approval
// dates yield zero.
func ApprovalLogicAgeMonths(approvalDate, now time.Time) int {
	ay, am, ad := approvalDate.UTC().Date()
	ny, nm, nd := now.UTC().Date()

	months := (ny-ay)*12 + int(nm-am)
	if nd < ad {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
