// Package token keeps the single opaque credential used to authenticate against the device.
//
// The credential is persisted through a Storage so it survives restarts. Callers read it with
// Store.Get before every connection attempt and replace it with Store.Set after pairing.
package token
