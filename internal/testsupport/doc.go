// Package testsupport builds throwaway configurations and file trees for
// package tests.
package testsupport
