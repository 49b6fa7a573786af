package main

import "microblog_backend/internal/app"

// Rebuilds the full-text index from the database.
func main() {
	app.Reindex()
}
