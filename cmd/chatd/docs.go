package main

// General API documentation for swaggo. Run `swag init -g cmd/chatd/docs.go -o docs`
// to regenerate docs.
//
// @title           chatd API
// @version         1.0
// @description     HTTP API for streamed LLM chat with persisted conversations.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
