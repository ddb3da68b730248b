// Package auth provides the account primitives of the agents API: bcrypt
// password hashing, HMAC signed bearer tokens, the users repository over Bun
// and the fiber handlers for register, login, me, logout and user lookups.
//
// Tokens:
//   - TokenServiceImpl signs tokens whose subject is the user email. Expiry is
//     checked against an injectable Clock, and signature failures always win
//     over expiry so a forged token never reads as merely expired.
//   - Logout is advisory. No revocation state is kept, clients drop the token.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     register, login, identify and logout outcomes. Sinks run best-effort
//     (errors are logged) so metrics or log forwarding never block a request.
//
// Errors:
//   - Every failure is a go-errors value. ErrorToResponse maps it to a status
//     and a {"detail": ...} body, with validation failures listing fields
//     under "errors".
package auth
