// Package common contains shared constants and sentinel errors used across
// tgauth components.
package common

// AuthorizationHeaderName carries the session token on downstream requests
// as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the session token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// ReferralCodeLength is the number of characters in a generated referral code.
const ReferralCodeLength = 8
