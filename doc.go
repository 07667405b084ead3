// Package gallery is a small self-hosted image gallery.
//
// Features:
// - Image upload with type, extension and size checks
// - Newest-first listing with search and sort
// - Delete of the record together with its file
// - Browser page and the galleryctl command line client
// - Pluggable metadata store (memory, SQLite, MySQL, PostgreSQL, Redis)
// - Prometheus metrics, health checks and rate limiting
//
// Example usage:
//
//	go run . --config config/config.json
//	go run ./cmd/galleryctl list --sort name
//
// Configuration:
//
//	See config/config.json; PORT, UPLOAD_DIR and GALLERY_* variables override it.
//
// API Documentation:
//
//	All endpoints are registered in internal/api/handler.go
package main
