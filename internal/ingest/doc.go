// Package ingest discovers photos under a directory tree and extracts the
// position and capture time recorded in their EXIF metadata.
//
// Discovery walks the tree in lexical order, skipping hidden and system
// folders and files whose extension is not an image type. Metadata extraction
// fans out across a bounded worker pool; results are collected by walk index
// so the returned items always follow walk order. Files that cannot be parsed
// are counted and skipped without aborting the scan.
package ingest
