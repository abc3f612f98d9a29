// Package pkginfo defines the package metadata record and its textual
// .PKGINFO encoding.
//
// The encoding is a flat sequence of "key = value" lines. Keys that hold
// sequences (depend, provides, replaces, install_if) repeat one line per
// element, preserving order. Lines starting with '#' are comments.
package pkginfo
