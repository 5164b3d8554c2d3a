// Package dashboard provides the embedded web UI for the HaloLight console.
//
// The page is a single HTML document with inline CSS and JavaScript that
// signs in through the JSON API and follows the console state over
// Server-Sent Events. It is embedded at compile time so the console ships as
// a single binary.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the console web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Console page; {{.Title}} is replaced with the console title
//
//go:embed assets/*
var Assets embed.FS
