// Package signup implements account registration.
//
// Registration validates the username format and password policy, rejects
// duplicate phone numbers before any record is written, and creates the
// account unconfirmed. A confirmation email is sent on success; signing in
// stays blocked until the emailed link is followed.
package signup
