package main

import "dealdesk/internal/app"

// @title dealdesk API
// @version 1.0
// @description CRM backend: pipeline stages, deals, contacts, companies, tasks.
// @BasePath /
func main() {
	app.Run()
}
