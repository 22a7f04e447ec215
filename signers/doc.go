// Package signers provides ready-made implementations of the payd.Signer
// interface for common key setups: a local keypair signer for server-side
// use and a callback signer for delegating to HSMs or custodial APIs.
//
// payd itself never stores or transmits private key material; the signer is
// the boundary where signing happens.
package signers
