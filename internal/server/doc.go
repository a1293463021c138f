// Package server exposes the EcoLang HTTP API: script execution, script
// storage, aggregate stats and the usual observability endpoints.
package server
