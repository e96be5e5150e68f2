/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
// @title           Jejak Air API
// @version         1.0
// @description     Aquaculture export traceability and risk scoring API server
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@jejak-air.id

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a JWT token
package main

import "github.com/pandora-hackathon/jejak-air/cmd"

func main() {
	cmd.Execute()
}
