// Package adaptive provides authenticated encryption with automatic
// algorithm selection.
//
// RollCall encrypts write-ahead log entries and snapshot payloads at
// rest when an encryption key is configured. The cipher is chosen for
// the hardware:
//
//   - AES-256-GCM when the CPU accelerates AES
//   - ChaCha20-Poly1305 otherwise
//
// Both are AEADs with a 12-byte nonce and a 16-byte tag. Encrypt
// prepends the random nonce to the ciphertext, so a sealed value is
// self-contained. Data written on one host must be opened with the
// same algorithm; pin one explicitly with NewWithType when files move
// between architectures.
//
// Usage:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	opened, err := c.Decrypt(sealed, aad)
package adaptive
