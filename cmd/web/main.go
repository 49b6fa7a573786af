package main

import "microblog_backend/internal/app"

func main() {
	app.Run()
}
