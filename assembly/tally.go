// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import "github.com/danielhkuo/hoa-assembly/models"

// Tally aggregates the ballots of one agenda item. Percentages are shares of
// the total cast mills.
func Tally(agendaItemID string, ballots []models.AssemblyVote) models.VoteResults {
	res := models.VoteResults{AgendaItemID: agendaItemID}

	for _, b := range ballots {
		var bucket *models.ChoiceTally
		switch b.Vote {
		case models.ChoiceApprove:
			bucket = &res.Approve
		case models.ChoiceReject:
			bucket = &res.Reject
		case models.ChoiceAbstain:
			bucket = &res.Abstain
		default:
			continue
		}
		bucket.Count++
		bucket.Mills += b.Mills
		res.Total.Count++
		res.Total.Mills += b.Mills

		switch b.VoteSource {
		case models.SourcePreVote:
			res.PreVoteCount++
		case models.SourceLive:
			res.LiveCount++
		case models.SourceProxy:
			res.ProxyCount++
		}
	}

	res.ApprovePercentage = percentOf(res.Approve.Mills, res.Total.Mills)
	res.RejectPercentage = percentOf(res.Reject.Mills, res.Total.Mills)
	res.AbstainPercentage = percentOf(res.Abstain.Mills, res.Total.Mills)
	return res
}
