// Package initdata verifies and parses Telegram Mini-App initData strings.
//
// A Mini-App receives initData as a URL-encoded query string signed by
// Telegram for one specific bot. Verification rebuilds the data-check-string
// (every field except hash, as key=value lines sorted by key and joined by
// '\n'), derives the secret key as HMAC-SHA256("WebAppData", botToken) and
// compares HMAC-SHA256(secretKey, dataCheckString) with the supplied hash in
// constant time.
//
// Verification and parsing are independent passes: Parse must only be called
// on strings that Verify (or VerifyFresh) accepted.
package initdata
