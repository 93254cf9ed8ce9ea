// Command webextract serves the scrape job API.
//
// Usage:
//
//	webextract -config config.yaml
//
// Every setting can also be supplied through WEBEXTRACT_* environment
// variables, for example WEBEXTRACT_SERVER_PORT=9090.
package main
