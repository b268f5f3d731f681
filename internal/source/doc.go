// Package source reads the lead dataset from a local CSV file or over
// HTTP(S), and inspects the TLS certificate of https sources.
//
// Remote requests carry the configured credentials (apikey header, bearer
// token, basic auth or an mTLS client certificate). Secrets are resolved
// from the environment at request time and never appear in Describe.
package source
