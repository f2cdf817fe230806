/*
Package store implements the encrypted, on-disk SQLite store backing a
single vault.

Encryption note: the reference vault format keys the entire database file
via SQLCipher PRAGMA key/cipher_* statements. mattn/go-sqlite3 links the
stock SQLite amalgamation and has no cipher support, and no SQLCipher
Go binding appears anywhere in this dependency set, so whole-file
encryption is not available to this driver. Confidentiality is instead
enforced at the row level: note titles and bodies, task titles and
notes, project names and descriptions, domain-entity payloads (social
tokens included) and knowledge-card fronts and backs are sealed with
pkg/crypto's AEAD functions under the vault DEK before INSERT and opened
again after SELECT. Time-entry notes and llm_cache rows are not sealed;
they are stored in plaintext. Structural columns (IDs,
timestamps, status enums, foreign keys) stay in plaintext so the store
can index and query them directly. config.json still records the
cipher/kdf parameters from the original format for informational
round-tripping, but store.Open does not attempt to key the SQLite file
itself.

Pragma tuning (journal mode, cache size, mmap size, busy timeout) is
real and applied per DeviceProfile; see pragma.go.
*/
package store
