// SPDX-License-Identifier: MPL-2.0

// Package mirror synchronizes the local artifact cache with an
// S3-compatible object store so teams can share compiled models and fits.
package mirror
