// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import (
	"github.com/shopspring/decimal"

	"github.com/danielhkuo/hoa-assembly/models"
)

var hundred = decimal.NewFromInt(100)

// RequiredMills is floor(total * percentage / 100).
func RequiredMills(total int64, percentage decimal.Decimal) int64 {
	return decimal.NewFromInt(total).Mul(percentage).Div(hundred).Floor().IntPart()
}

// ComputeQuorum derives the quorum snapshot from the attendees currently
// counted (present, pre-voted, or holding at least one ballot). It is pure and
// order-independent; it never looks at previous results.
func ComputeQuorum(total int64, percentage decimal.Decimal, counted []models.Attendee) models.QuorumStatus {
	var present int64
	for _, att := range counted {
		present += att.Mills
	}
	if present > total {
		present = total
	}
	if present < 0 {
		present = 0
	}

	required := RequiredMills(total, percentage)
	status := models.QuorumStatus{
		PresentMills:  present,
		RequiredMills: required,
		TotalMills:    total,
		PresentCount:  len(counted),
		Achieved:      total > 0 && present >= required,
	}
	if total > 0 {
		status.Percentage = percentOf(present, total)
	}
	if missing := required - present; missing > 0 {
		status.MissingMills = missing
	}
	return status
}

// percentOf returns part/whole*100 rounded to two decimals, 0 when whole is 0.
func percentOf(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(2).InexactFloat64()
}
