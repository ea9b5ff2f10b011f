// Package credentials holds the node's TLS key material.
//
// The default source is compiled into the binary with go:embed from the
// files next to this package:
//
//	client.crt  PEM-encoded client certificate
//	client.key  PEM-encoded private key
//	ca.crt      PEM-encoded CA certificate (optional)
//
// The checked-in files are empty build-time placeholders; no key material is
// committed to the repository. Built as is, Embedded returns a bundle without
// a client certificate, so TLSConfig authenticates the server only and the
// node logs a warning at startup. Provision the files before building a
// binary for a broker that requires mutual TLS, or set credentials.source to
// "file" and point cert_file/key_file/ca_file at files on the device.
//
// Key material is immutable once loaded and is never logged; only the
// certificate subject and expiry are reported.
package credentials
