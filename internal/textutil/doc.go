// Package textutil provides filename sanitization helpers.
//
// SanitizeFileName strips characters that are unsafe in a path segment, and
// FolderName builds on it to turn free-form place names (which may arrive in
// decomposed Unicode from remote services) into stable NFC directory names.
package textutil
