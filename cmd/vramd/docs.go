package main

// General API documentation for swaggo. Run `swag init -g cmd/vramd/docs.go`
// to regenerate docs.
//
// @title           vramd API
// @version         1.0
// @description     HTTP API for device-memory-resident model management.
//
// @BasePath  /
//
// @schemes http
