// Package handler holds the HTTP surface of scopeAuth: the OAuth2 password
// grant endpoint and the mapping from engine errors to HTTP responses.
//
// Error bodies are JSON objects with a single "detail" field. Authentication
// failures carry a WWW-Authenticate challenge; insufficient-scope failures
// name the missing scope in it.
package handler
