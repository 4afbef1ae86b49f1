// Package externallogin signs users in through OAuth2 identity providers.
//
// A known (provider, subject) pair signs straight into its linked account.
// On first contact a passwordless, pre-confirmed account is created from the
// provider claims and linked; the username is derived from the name claim
// plus a short subject-id prefix. If linking fails the fresh account is
// deleted again.
package externallogin
