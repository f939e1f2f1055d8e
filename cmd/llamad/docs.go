package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           llamad API
// @version         1.0
// @description     HTTP API for local model management and inference.
//
// @contact.name   llamad maintainers
// @contact.url    https://github.com/your-org/llamad
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
