// Package document provides the JSON document model stored in collections.
//
// Values form a sealed set: Null, String, Int, Float, Bool, Array, Object.
// Parsing keeps integers and floats apart (json.Number), so a document read
// back from the store round-trips without widening ints to float64.
//
// Canonical form (MarshalCanonical) follows RFC 8785 ordering: object keys
// sorted by UTF-16 code units, no HTML escaping, strings NFC-normalized.
// ContentHash uses it to derive a document revision.
package document
