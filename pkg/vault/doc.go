/*
Package vault implements the create/unlock/lock lifecycle for a single
vault directory on disk.

A vault directory holds two files: vault.sqlite3 (the SQLite store from
pkg/store) and config.json (the key-derivation parameters and wrapped
DEK needed to unlock it). Creating a vault generates a random DEK, wraps
it under a password-derived KEK, and writes config.json; opening a vault
re-derives the KEK from the supplied password, unwraps the DEK, and hands
an open *store.Store plus the unwrapped DEK to the caller as a *Vault.

The DEK never touches disk unwrapped. Locking a vault simply drops the
in-memory *Vault and closes the store connection; there is nothing further
to "encrypt", since row payloads are sealed under the DEK as they are
written (see pkg/store's doc comment).
*/
package vault
