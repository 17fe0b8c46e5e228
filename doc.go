// Package resourcex defines the interfaces and core types for components of
// a resource registry. The goal is to allow users to reliably package, ship
// and store self-describing resources such as prompts, tools, skills and
// configuration bundles.
//
// # Locator
//
// Every resource is addressed by a locator of the form
// [registry/][path/]name[:tag]. The locator package parses and formats this
// syntax; the rest of the system treats a parsed locator as the lookup key
// for all stores.
//
// # Blob
//
// Resource file contents live in a content-addressable blob store. Blobs are
// identified by a cryptographically strong digest of their bytes, so
// identical file content is stored once no matter how many resources carry
// it.
//
// # Manifest
//
// A manifest records a resource's definition together with the digest of
// every file in its archive. Manifests are keyed by (registry, name, tag)
// and are the only mutable records in the system; a tag pointer per
// (registry, name) tracks which tag was written most recently.
//
// # Resource
//
// A resource bundles an identifier, a manifest and the packed archive bytes.
// A resource is complete when the identifier agrees with the manifest and
// the archive's recomputed digest matches the digest the manifest records.
// The Registry interface stores and retrieves complete resources; the
// resolver package layers link, cache, mirror and origin lookup on top of
// it.
package resourcex
