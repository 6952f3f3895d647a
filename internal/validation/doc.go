// Package validation checks individual IDs against their catalog, caches the
// outcome for 24 hours, and uses the results to repair bulk fetches.
//
// Each ID moves from unvalidated to Valid, Invalid(NotFound), Invalid(InvalidId)
// or Invalid(ApiError). Valid and NotFound are terminal for the cache TTL.
// ApiError outcomes are cached provisionally while a background retry runs
// after base*retryCount; after three consecutive ApiErrors the outcome is held
// until the entry expires. ValidateMany works in chunks of ten with a short
// pause between chunks.
package validation
