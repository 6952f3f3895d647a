// Package bulk fetches many catalog records with as few upstream calls as
// possible.
//
// FetchMany groups IDs per catalog, sorts them, and splits them into chunks no
// larger than the catalog's batch cap; each chunk is one Lookup call cached
// under its sorted ID list for 15 minutes, so request order never matters. The
// result always carries exactly one record per requested ID: real data, a
// not_found placeholder the catalog confirmed, or an unavailable placeholder
// when the chunk's call failed. Failed chunks are not cached.
package bulk
