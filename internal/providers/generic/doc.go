// Package generic implements a providers.Finder driven by a user supplied
// CSS selector. It knows nothing about particular sites: the selector picks
// the elements and the image URL is read from their attributes.
package generic
