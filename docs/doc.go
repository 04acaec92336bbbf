// Package docs provides generated OpenAPI documentation.
//
// pcr API
//
//	@title			pcr API
//	@version		1.0
//	@description	Extracts structured patient care reports from free-text EMS narratives.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/pcr
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/pcr/serve.go -o ./swagger --parseDependency --parseInternal --outputTypes go
