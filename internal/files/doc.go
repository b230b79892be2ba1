// Package files writes application files under the configured directories.
//
// Manager resolves relative names against the data, uploads, reports,
// cache and logs directories and replaces files atomically, so a reader
// never observes a half-written upload:
//
//	manager := files.NewManager(paths, logger)
//	path, err := manager.WriteFile("uploads/consumption.xlsx", data)
package files
