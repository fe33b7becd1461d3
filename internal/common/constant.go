// Package common contains shared constants and sentinel errors used across
// Image Studio components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// BlobRefPrefix marks history image fields that point to object storage
// instead of carrying an inline data URL.
const BlobRefPrefix = "blob:"
