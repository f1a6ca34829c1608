// Package model defines the city records that flow through the fetch and
// cluster engines, their slim storage projection, and tolerant decoding of
// externally produced documents.
package model
