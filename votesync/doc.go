// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votesync mirrors assembly voting items into the shared vote model.

Other parts of the platform run their own votes (project approvals, for
example) on the vote and vote_submission tables. A voting agenda item can be
backed by one such vote so that both sides see the same ballots:

	approve  <->  YES
	reject   <->  NO
	abstain  <->  BLANK

Every recorded ballot, including a staff override, is upserted as the
submission of the attendee's user. SyncVoteResults runs the other way when
results are viewed: a submission newer than the local ballot replaces its
choice and keeps its mills.
*/
package votesync
