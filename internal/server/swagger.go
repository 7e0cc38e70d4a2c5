package server

//go:generate swag init -g swagger.go -o docs --outputTypes go --parseDependency --parseInternal

// @title ShieldSuite API
// @version 0.1
// @description Mobile security suite backend: APK risk scoring, malware protection, live alerts, VPN, device and app inventory.
// @contact.name ShieldSuite Maintainers
// @contact.url https://github.com/raysh454/shieldsuite
// @BasePath /
