// Package source scrapes the editorial "most popular right now" guides into
// ranked source items. Fetch handles transport and transcoding; Parse is pure
// and fails with a structural error when the page is not the expected guide.
package source
