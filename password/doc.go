// Package password verifies stored password hashes for credential checks.
//
// Two schemes are understood: Argon2id PHC strings, which [Argon2] also produces for new
// hashes,
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// and bcrypt modular-crypt strings ($2a$, $2b$, $2y$) as written by legacy user tables.
// [Verifier] picks the scheme from the hash prefix and reports through NeedsUpgrade when
// a hash should be replaced after the next successful login.
//
// The package never stores, logs or normalizes plaintext.
package password
