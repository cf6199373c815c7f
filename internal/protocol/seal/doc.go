// Package seal encrypts and decrypts the payload fields of chat messages.
//
// An encrypted message carries senderName, message and timestamp as three
// independent EncryptedBlob values under the sender/receiver shared key,
// each with its own random IV. Routing fields stay in the clear.
//
// Opening never fails with an error. A message that cannot be opened comes
// back as an Opened with DecryptionError set, the envelope unchanged and a
// short Reason, so the caller can render it as undecryptable.
//
// Encrypted messages carry a scheme version in "v". A missing version reads
// as 1; a version newer than SchemeVersion is reported as undecryptable
// instead of being attempted with the wrong parameters.
package seal
