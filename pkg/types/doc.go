// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for docmorph: documents,
// conversion formats, requests and results, session state, and the
// configuration structures read by the CLI.
package types
