// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers, signed tokens, and the capability policy.

# IDs

Every row id is a random UUID:

	id := auth.NewID()

# Actor Tokens

Requests carry an HS256 bearer token naming the acting user, role and tenant.
Tokens are issued by the account service that shares TOKEN_SECRET:

	token, err := auth.IssueActorToken(actor, secret, 12*time.Hour)
	actor, err := auth.ParseActorToken(token, secret)

# Vote Links

Reminder emails embed a signed link for the generic email-vote endpoint. The
token names the assembly, attendee and agenda item, and expires with the
voting window:

	token, err := auth.IssueVoteLinkToken(link, secret, windowEnd)

Each token type carries a purpose claim so one can never be replayed as the
other.

# Capabilities

Policy decides whether an actor may manage an assembly (cast on behalf of
others, override ballots during a live session, drive state transitions).
RolePolicy grants it to staff, managers and admins.
*/
package auth
